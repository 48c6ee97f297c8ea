package database

import (
	"testing"

	"tfms/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres"} {
		d, err := Dialector(&config.DatabaseConfig{Driver: driver, Host: "db", Port: 1, Database: "tfms"})
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.DatabaseConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "sqlite")
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, logLevel("INFO"))
	assert.Equal(t, logger.Silent, logLevel("silent"))
	assert.Equal(t, logger.Warn, logLevel(""))
}

func TestModels_CoverOutbox(t *testing.T) {
	assert.Len(t, Models(), 7)
}
