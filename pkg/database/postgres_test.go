package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/regulars-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "studio", Password: "s3cret", Name: "regulars", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=studio password=s3cret dbname=regulars sslmode=disable", dsn)
}
