package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterArgs_SeparateValue(t *testing.T) {
	got := FilterArgs([]string{"-a", ":8080", "-x", "nope"}, []string{"-a"})
	require.Equal(t, []string{"-a", ":8080"}, got)
}

func TestFilterArgs_EqualsForm(t *testing.T) {
	got := FilterArgs([]string{"--config=conf.json", "-d=dsn", "-z=skip"}, []string{"--config", "-d"})
	require.Equal(t, []string{"--config=conf.json", "-d=dsn"}, got)
}

func TestFilterArgs_FlagWithoutValue(t *testing.T) {
	// the next argument looks like another flag, so it is not consumed as a value
	got := FilterArgs([]string{"-a", "-d", "dsn"}, []string{"-a", "-d"})
	require.Equal(t, []string{"-a", "-d", "dsn"}, got)
}

func TestFilterArgs_Empty(t *testing.T) {
	got := FilterArgs(nil, []string{"-a"})
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestJsonConfigFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"test", "-c", "conf.json", "-a", ":9000"}
	require.Equal(t, "conf.json", JsonConfigFlags())

	os.Args = []string{"test", "-config=other.json"}
	require.Equal(t, "other.json", JsonConfigFlags())

	os.Args = []string{"test", "-a", ":9000"}
	require.Equal(t, "", JsonConfigFlags())
}
