package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
http:
  address: ":9090"
database:
  driver: postgres
  host: localhost
  port: 5432
  user: airres
  password: secret
  name: airres
  ssl_mode: disable
kafka:
  brokers: ["localhost:9092"]
  booking_events_topic: booking-events
  notifications_topic: notifications
booking:
  flights_cache_ttl: 30s
fleet:
  - registration: TC-JNA
    model: Airbus A330-300
    total_seats: 289
  - registration: TC-LJA
    model: Boeing 777-300ER
    total_seats: 349
    status: MAINTENANCE
    next_maintenance: 2027-03-01T00:00:00Z
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, 30*time.Second, cfg.Booking.FlightsCacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.Booking.MinLeadTime)
	assert.Equal(t, "@every 15m", cfg.Worker.CompleteArrivedSpec)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "host=localhost port=5432 user=airres password=secret dbname=airres sslmode=disable", cfg.Database.DSN())

	require.Len(t, cfg.Fleet, 2)
	assert.Equal(t, "ACTIVE", cfg.Fleet[0].Status)
	assert.Equal(t, 289, cfg.Fleet[0].TotalSeats)
	assert.Equal(t, "MAINTENANCE", cfg.Fleet[1].Status)
	require.NotNil(t, cfg.Fleet[1].NextMaintenance)
	assert.Equal(t, time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC), cfg.Fleet[1].NextMaintenance.UTC())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AIRRES_DATABASE_HOST", "db.internal")
	t.Setenv("AIRRES_DATABASE_SSL_MODE", "require")
	t.Setenv("AIRRES_BOOKING_MIN_LEAD_TIME", "3h")
	t.Setenv("AIRRES_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 3*time.Hour, cfg.Booking.MinLeadTime)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "airres", cfg.Database.User)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "database:\n  driver: mongo\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "kafka:\n  brokers: [\"localhost:9092\"]\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_ValidateFleet(t *testing.T) {
	tests := []struct {
		name  string
		fleet []AircraftConfig
	}{
		{"no registration", []AircraftConfig{{TotalSeats: 100, Status: "ACTIVE"}}},
		{"no seats", []AircraftConfig{{Registration: "TC-JNA", Status: "ACTIVE"}}},
		{"bad status", []AircraftConfig{{Registration: "TC-JNA", TotalSeats: 100, Status: "PARKED"}}},
		{"duplicate", []AircraftConfig{
			{Registration: "TC-JNA", TotalSeats: 100, Status: "ACTIVE"},
			{Registration: "TC-JNA", TotalSeats: 120, Status: "ACTIVE"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Database: DatabaseConfig{Driver: DriverMemory}, Fleet: tt.fleet}
			assert.Error(t, cfg.Validate())
		})
	}
}
