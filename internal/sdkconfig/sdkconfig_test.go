package sdkconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `#
# Automatically generated file. DO NOT EDIT.
# Espressif IoT Development Framework (ESP-IDF) Project Configuration
#
CONFIG_SOC_BLE_MESH_SUPPORTED=y
CONFIG_BT_ENABLED=y
CONFIG_BLE_MESH_GATT_PROXY_SERVER=n
# CONFIG_BLE_MESH_FRIEND is not set
CONFIG_BLE_MESH_MAX_PROV_NODES=10
CONFIG_BLE_MESH_NODE_ID_TIMEOUT = 60
CONFIG_IDF_TARGET="esp32c3"
CONFIG_NEG=-4
this is not a setting

CONFIG_BLE_MESH_MAX_PROV_NODES=12
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CONFIG_SOC_BLE_MESH_SUPPORTED",
		"CONFIG_BT_ENABLED",
		"CONFIG_BLE_MESH_GATT_PROXY_SERVER",
		"CONFIG_BLE_MESH_MAX_PROV_NODES",
		"CONFIG_BLE_MESH_NODE_ID_TIMEOUT",
		"CONFIG_IDF_TARGET",
		"CONFIG_NEG",
	}, cfg.Keys)

	assert.Equal(t, true, cfg.Values["CONFIG_BT_ENABLED"])
	assert.Equal(t, false, cfg.Values["CONFIG_BLE_MESH_GATT_PROXY_SERVER"])
	assert.Equal(t, 60, cfg.Values["CONFIG_BLE_MESH_NODE_ID_TIMEOUT"])
	assert.Equal(t, `"esp32c3"`, cfg.Values["CONFIG_IDF_TARGET"])
	assert.Equal(t, -4, cfg.Values["CONFIG_NEG"])

	// later assignments win
	assert.Equal(t, 12, cfg.Values["CONFIG_BLE_MESH_MAX_PROV_NODES"])

	assert.Equal(t, true, cfg.Values["CONFIG_SOC_BLE_MESH_SUPPORTED"])
	assert.NotContains(t, cfg.Values, "CONFIG_BLE_MESH_FRIEND")

	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "line 13")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdkconfig")
	require.NoError(t, os.WriteFile(path, []byte("CONFIG_A=y\n"), 0o644))

	cfg, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"CONFIG_A": true}, cfg.Values)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
