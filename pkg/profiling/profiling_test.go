package profiling

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingmentor/wingmentor-api/config"
)

func TestProfileTypes_Default(t *testing.T) {
	got, err := profileTypes("  ")
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileGoroutines,
	}, got)
}

func TestProfileTypes_ExpandsAndDedupes(t *testing.T) {
	got, err := profileTypes("CPU, mutex,cpu,,block")
	require.NoError(t, err)

	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
		pyroscope.ProfileBlockCount,
		pyroscope.ProfileBlockDuration,
	}, got)
}

func TestProfileTypes_Invalid(t *testing.T) {
	_, err := profileTypes("cpu,heap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"heap"`)

	_, err = profileTypes(",,")
	require.Error(t, err)
}

func TestServiceTags(t *testing.T) {
	svc := Service{Name: "wingmentor-api", Namespace: "wingmentor", Version: "1.0.0", Environment: "production"}

	assert.Equal(t, map[string]string{
		"service_name":    "wingmentor-api",
		"namespace":       "wingmentor",
		"environment":     "production",
		"service_version": "1.0.0",
	}, svc.tags())

	svc.InstanceID = "api-1"
	assert.Equal(t, "api-1", svc.tags()["instance"])
}

func TestStart_Disabled(t *testing.T) {
	stop, err := Start(config.ProfilingConfig{Enabled: false}, Service{})
	require.NoError(t, err)
	require.NotNil(t, stop)
	stop()
}

func TestStart_RequiresEndpoint(t *testing.T) {
	_, err := Start(config.ProfilingConfig{Enabled: true, Endpoint: " "}, Service{Name: "wingmentor-api"})
	require.Error(t, err)
}
