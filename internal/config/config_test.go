package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "catalog_db", cfg.Database.Database)
				assert.True(t, cfg.RabbitMQ.Enabled)
				assert.Equal(t, "catalog_events", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "import_jobs", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "catalog-importer-api", cfg.App.Name)
				assert.Equal(t, 2000, cfg.Importer.BatchSize)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/minimal_config.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 5000, cfg.Importer.BatchSize)
	assert.NotEmpty(t, cfg.Importer.SpoolDir)
	assert.Equal(t, 500*time.Millisecond, cfg.Importer.SSEPollInterval)
	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
}

func validTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "catalog_db",
		},
		RabbitMQ: RabbitMQConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    5672,
			Exchange: ExchangeConfig{
				Name: "catalog_events",
			},
			Queue: QueueConfig{
				Name: "import_jobs",
			},
		},
		Worker: WorkerConfig{
			Concurrency:     4,
			JobTimeout:      10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Importer: ImporterConfig{
			BatchSize: 5000,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name: "invalid server port - too low",
			mutate: func(cfg *Config) {
				cfg.Server.Port = 0
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "invalid server port - too high",
			mutate: func(cfg *Config) {
				cfg.Server.Port = 70000
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "empty database host",
			mutate: func(cfg *Config) {
				cfg.Database.Host = ""
			},
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name: "empty database name",
			mutate: func(cfg *Config) {
				cfg.Database.Database = ""
			},
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "empty rabbitmq host when enabled",
			mutate: func(cfg *Config) {
				cfg.RabbitMQ.Host = ""
			},
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name: "empty exchange name when enabled",
			mutate: func(cfg *Config) {
				cfg.RabbitMQ.Exchange.Name = ""
			},
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name: "empty queue name when enabled",
			mutate: func(cfg *Config) {
				cfg.RabbitMQ.Queue.Name = ""
			},
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name: "rabbitmq ignored when disabled",
			mutate: func(cfg *Config) {
				cfg.RabbitMQ = RabbitMQConfig{Enabled: false}
			},
			wantErr: false,
		},
		{
			name: "zero batch size",
			mutate: func(cfg *Config) {
				cfg.Importer.BatchSize = 0
			},
			wantErr:   true,
			errString: "batch_size must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name: "rabbitmq always required for worker",
			mutate: func(cfg *Config) {
				cfg.RabbitMQ = RabbitMQConfig{Enabled: false}
			},
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name: "zero concurrency",
			mutate: func(cfg *Config) {
				cfg.Worker.Concurrency = 0
			},
			wantErr:   true,
			errString: "concurrency must be greater than 0",
		},
		{
			name: "zero job timeout",
			mutate: func(cfg *Config) {
				cfg.Worker.JobTimeout = 0
			},
			wantErr:   true,
			errString: "job_timeout must be greater than 0",
		},
		{
			name: "zero shutdown timeout",
			mutate: func(cfg *Config) {
				cfg.Worker.ShutdownTimeout = 0
			},
			wantErr:   true,
			errString: "shutdown_timeout must be greater than 0",
		},
		{
			name: "negative batch size",
			mutate: func(cfg *Config) {
				cfg.Importer.BatchSize = -1
			},
			wantErr:   true,
			errString: "batch_size must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.NoError(t, err)
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestPortConstants(t *testing.T) {
	t.Run("port constants are correct", func(t *testing.T) {
		assert.Equal(t, 1, MinPort)
		assert.Equal(t, 65535, MaxPort)
	})

	t.Run("valid port range", func(t *testing.T) {
		validPorts := []int{1, 80, 443, 8080, 65535}
		for _, port := range validPorts {
			assert.GreaterOrEqual(t, port, MinPort)
			assert.LessOrEqual(t, port, MaxPort)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		invalidPorts := []int{0, -1, 65536, 70000}
		for _, port := range invalidPorts {
			valid := port >= MinPort && port <= MaxPort
			assert.False(t, valid, "port %d should be invalid", port)
		}
	})
}
