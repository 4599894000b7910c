package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:3000", false},
		{":8080", false},
		{"localhost:0", false},
		{"localhost", true},
		{"host:http", true},
		{"host:70000", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithPort(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", WithPort("0.0.0.0:3000", 8080))
	assert.Equal(t, ":9000", WithPort("garbage", 9000))
}

func TestMongoOptionsDefaults(t *testing.T) {
	o := NewMongoOptions()

	assert.Equal(t, "drivers_tracking", o.Database)
	assert.EqualValues(t, 100, o.MaxPoolSize)
	assert.EqualValues(t, 20, o.MinPoolSize)
	assert.Equal(t, 50*time.Second, o.ConnectTimeout())

	errs := o.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "MONGO_URI is required")

	o.URI = "mongodb://localhost:27017"
	assert.Empty(t, o.Validate())

	o.MinPoolSize = 200
	assert.Len(t, o.Validate(), 1)

	o.MinPoolSize = 20
	o.URI = "http://localhost"
	assert.Len(t, o.Validate(), 1)
}

func TestPingOptions(t *testing.T) {
	o := NewPingOptions()
	assert.Equal(t, 30*24*time.Hour, o.Retention())
	assert.Empty(t, o.Validate())

	o.RetentionDays = 0
	assert.Len(t, o.Validate(), 1)
}

func TestMqttOptionsDisabledByDefault(t *testing.T) {
	o := NewMqttOptions()
	assert.False(t, o.Enabled())
	assert.Empty(t, o.Validate())

	o.Broker = "tcp://localhost:1883"
	assert.True(t, o.Enabled())
	assert.Empty(t, o.Validate())

	cfg := o.ToClientConfig()
	assert.EqualValues(t, 60, cfg.KeepAlive)
	assert.Equal(t, o.Broker, cfg.BrokerURL)
}

func TestAddFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	m := NewMongoOptions()
	p := NewPingOptions()
	m.AddFlags(fs)
	p.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--mongo.uri=mongodb://db:27017",
		"--mongo.max-pool-size=50",
		"--ping.retention-days=7",
	}))

	assert.Equal(t, "mongodb://db:27017", m.URI)
	assert.EqualValues(t, 50, m.MaxPoolSize)
	assert.Equal(t, 7, p.RetentionDays)
}
