package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvString(t *testing.T) {
	assert.Equal(t, "fallback", GetEnvString("COORDINATOR_ENV_UNSET", "fallback"))

	t.Setenv("COORDINATOR_ENV_STR", "set")
	assert.Equal(t, "set", GetEnvString("COORDINATOR_ENV_STR", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	assert.Equal(t, 8080, GetEnvInt("COORDINATOR_ENV_UNSET", 8080))

	t.Setenv("COORDINATOR_ENV_INT", "9090")
	assert.Equal(t, 9090, GetEnvInt("COORDINATOR_ENV_INT", 8080))

	t.Setenv("COORDINATOR_ENV_INT", "not a number")
	assert.Equal(t, 8080, GetEnvInt("COORDINATOR_ENV_INT", 8080))
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "1", want: true},
		{value: "true", want: true},
		{value: "True", want: true},
		{value: "0", want: false},
		{value: "f", want: false},
		{value: "FALSE", want: false},
		{value: "yes", want: true}, // unparsable falls back to the default
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("COORDINATOR_ENV_BOOL", tt.value)
			assert.Equal(t, tt.want, GetEnvBool("COORDINATOR_ENV_BOOL", true))
		})
	}

	assert.True(t, GetEnvBool("COORDINATOR_ENV_UNSET", true))
}

func TestGetEnvDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetEnvDuration("COORDINATOR_ENV_UNSET", 30*time.Second))

	t.Setenv("COORDINATOR_ENV_DUR", "1h30m")
	assert.Equal(t, 90*time.Minute, GetEnvDuration("COORDINATOR_ENV_DUR", 30*time.Second))

	t.Setenv("COORDINATOR_ENV_DUR", "soon")
	assert.Equal(t, 30*time.Second, GetEnvDuration("COORDINATOR_ENV_DUR", 30*time.Second))
}

func TestGetEnvStringList(t *testing.T) {
	fallback := []string{"10.0.0.0/8"}

	assert.Equal(t, fallback, GetEnvStringList("COORDINATOR_ENV_UNSET", fallback))

	t.Setenv("COORDINATOR_ENV_LIST", "10.0.0.0/8, 172.16.0.0/12 ,192.168.0.0/16")
	assert.Equal(t,
		[]string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		GetEnvStringList("COORDINATOR_ENV_LIST", fallback))

	t.Setenv("COORDINATOR_ENV_LIST", " , ,")
	assert.Equal(t, fallback, GetEnvStringList("COORDINATOR_ENV_LIST", fallback))
}
