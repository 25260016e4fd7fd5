package domain

// ProductRecord is a normalized candidate row ready for upsert. SKU is the
// normalized key: trimmed of surrounding whitespace and lower-cased.
type ProductRecord struct {
	SKU         string
	Name        string
	Description string
	Price       *float64
	IsActive    bool
}

// RowClass classifies an accepted row relative to the keys seen so far.
type RowClass int

const (
	// ClassNew means the normalized key was not seen earlier in the file and
	// does not exist in the persistent store snapshot.
	ClassNew RowClass = iota
	// ClassDuplicateInFile means an earlier row in the same file already used
	// this key.
	ClassDuplicateInFile
	// ClassDuplicateExisting means the key already exists in the persistent
	// store.
	ClassDuplicateExisting
)

func (c RowClass) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassDuplicateInFile:
		return "duplicate_in_file"
	case ClassDuplicateExisting:
		return "duplicate_existing"
	default:
		return "unknown"
	}
}
