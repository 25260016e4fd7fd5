package importer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogtools/importer/internal/importer/domain"
)

func newTestExecutor(products *fakeProducts, notifier *fakeNotifier) *Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecutor(nil, products, notifier, logger)
}

func TestExecutor_Execute_BulkDelete(t *testing.T) {
	products := newFakeProducts()
	products.records["abc-1"] = domain.ProductRecord{SKU: "abc-1"}
	products.records["abc-2"] = domain.ProductRecord{SKU: "abc-2"}

	notifier := &fakeNotifier{}
	exec := newTestExecutor(products, notifier)

	err := exec.Execute(context.Background(), domain.JobMessage{
		JobType: domain.JobTypeBulkDelete,
	})
	require.NoError(t, err)

	assert.Empty(t, products.records)

	require.Equal(t, []string{EventBulkDelete}, notifier.events)
	assert.Equal(t, int64(2), notifier.payloads[0]["deleted_count"])
}

func TestExecutor_Execute_UnknownJobType(t *testing.T) {
	exec := newTestExecutor(newFakeProducts(), &fakeNotifier{})

	err := exec.Execute(context.Background(), domain.JobMessage{
		JobType: "reindex",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownJobType)
}
