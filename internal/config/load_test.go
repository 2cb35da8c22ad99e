package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestApp"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\nMAX_BOOKING_DAYS=14\nREFUND_SCHEDULE=72:1,24:0.5\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)
	assert.Equal(t, 14, cfg.Booking.MaxBookingDays)
	assert.Equal(t, "72:1,24:0.5", cfg.Booking.RefundSchedule)

	// Defaults
	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "booking_events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "payment_callbacks", cfg.Kafka.PaymentTopic)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 2, cfg.Booking.MinBookingNoticeHours)
	assert.Equal(t, 24, cfg.Booking.CancellationPolicyHours)
	assert.Equal(t, 14, cfg.Booking.ReviewDaysLimit)
	assert.Equal(t, int64(100), cfg.Points.RegistrationBonus)
	assert.Equal(t, int64(50), cfg.Points.BookingEarn)
	assert.Equal(t, int64(25), cfg.Points.ReviewEarn)
	assert.Equal(t, int64(10), cfg.Points.PostCost)
	assert.Equal(t, 600*time.Second, cfg.Redis.PropertyCacheTTL)
	assert.Equal(t, 10, cfg.WorkerPool.Size)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestConfig_Validate(t *testing.T) {
	defaults := func() *Config {
		v := viper.New()
		setDefaults(v)
		return fromViper(v)
	}

	t.Run("DefaultsAreValid", func(t *testing.T) {
		assert.NoError(t, defaults().validate(), "Default config should be valid")
	})

	t.Run("MemoryDriverSkipsPostgresChecks", func(t *testing.T) {
		cfg := defaults()
		cfg.Storage.Driver = StorageDriverMemory
		cfg.Postgres.URL = ""
		assert.NoError(t, cfg.validate())
	})

	t.Run("CollectsAllViolations", func(t *testing.T) {
		cfg := defaults()
		cfg.Storage.Driver = "sqlite"
		cfg.Booking.MaxBookingDays = 0
		cfg.Points.PostCost = 0

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORAGE_DRIVER must be one of postgres, memory")
		assert.Contains(t, err.Error(), "MAX_BOOKING_DAYS must be greater than 0")
		assert.Contains(t, err.Error(), "POINTS_POST_COST must be greater than 0")
	})
}
