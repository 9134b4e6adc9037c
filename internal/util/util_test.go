package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("ELI_TEST_STR", "value")
	t.Setenv("ELI_TEST_INT", "42")
	t.Setenv("ELI_TEST_BAD_INT", "forty")
	t.Setenv("ELI_TEST_BOOL", "true")
	t.Setenv("ELI_TEST_DUR", "90s")
	t.Setenv("ELI_TEST_LIST", " http://a.test , ,http://b.test")

	assert.Equal(t, "value", GetEnv("ELI_TEST_STR", "x"))
	assert.Equal(t, "x", GetEnv("ELI_TEST_MISSING", "x"))
	assert.Equal(t, 42, GetEnvInt("ELI_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("ELI_TEST_BAD_INT", 1))
	assert.True(t, GetEnvBool("ELI_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, GetEnvDuration("ELI_TEST_DUR", time.Second))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, GetEnvList("ELI_TEST_LIST", nil))
	assert.Equal(t, []string{"d"}, GetEnvList("ELI_TEST_MISSING", []string{"d"}))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_done\\`, EscapeLike(`100%_done\`))
	assert.Equal(t, `%cam\_1%`, ContainsPattern("cam_1"))
}

func TestISOTime(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:00:00.000Z", ISOTime(0))
	assert.Equal(t, "2024-01-02T03:04:05.678Z", ISOTime(time.Date(2024, 1, 2, 3, 4, 5, 678e6, time.UTC).UnixMilli()))
}

func TestMinuteFloor(t *testing.T) {
	assert.Equal(t, int64(120000), MinuteFloor(179999))
	assert.Equal(t, int64(120000), MinuteFloor(120000))
	assert.Equal(t, int64(-60000), MinuteFloor(-1))
}

func TestContainsSuspicious(t *testing.T) {
	assert.True(t, ContainsSuspicious("<script>"))
	assert.True(t, ContainsSuspicious("${jndi}"))
	assert.False(t, ContainsSuspicious("Front Gate"))
}
