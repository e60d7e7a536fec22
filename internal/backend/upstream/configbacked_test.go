package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metamx/mesos-scheduler-backend/internal/backend/configuration"
)

func TestConfigBackedAdapter_ExposesConfiguredValues(t *testing.T) {
	config := configuration.Default()
	config.MinRegisteredResourcesRatio = 0.8

	a := NewConfigBackedAdapter(config, 384, map[string]string{"SPARK_HOME": "/opt/spark"}, "driver://host:7077", "app-1")

	assert.Equal(t, 384.0, a.CalculateMemoryOverhead())
	assert.Equal(t, "/opt/spark", a.ExecutorEnv()["SPARK_HOME"])
	assert.Equal(t, "driver://host:7077", a.DriverURL())
	assert.Equal(t, "app-1", a.AppId())
	assert.Equal(t, 0.8, a.MinRegisteredResourcesRatio())
}
