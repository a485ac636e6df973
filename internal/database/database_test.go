package database

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/osms-business/osms_server/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     3306,
		Username: "osms",
		Password: "secret",
		Database: "osms",
	})
	assert.Equal(t, "osms:secret@tcp(127.0.0.1:3306)/osms?charset=utf8mb4&parseTime=True&loc=UTC", dsn)
}

func TestMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	for _, table := range []string{"users", "payment_intents", "send_batches", "credit_transactions"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedis(&config.RedisConfig{Host: mr.Host(), Port: portOf(t, mr)})
	require.NoError(t, err)
	defer rdb.Close()
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port := portOf(t, mr)
	mr.Close()

	_, err := NewRedis(&config.RedisConfig{Host: "127.0.0.1", Port: port})
	assert.Error(t, err)
}

func portOf(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(mr.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
