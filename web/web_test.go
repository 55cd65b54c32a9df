package web

import (
	"encoding/json"
	"github.com/XANi/esphome-tcs34725/i2c"
	"github.com/XANi/esphome-tcs34725/project"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/store"
	"github.com/XANi/esphome-tcs34725/tcs34725"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

const validConfig = `
esphome:
  name: kitchen
i2c:
  sda: 21
  scl: 22
sensor:
  - platform: tcs34725
    illuminance:
      name: Kitchen Lux
    high_level: 1000
    low_level: 10
`

func newBackend(t *testing.T, withStore bool) *WebBackend {
	reg := registry.New()
	i2c.Register(reg)
	tcs34725.Register(reg)
	c, err := project.New(project.Config{Registry: reg})
	require.NoError(t, err)
	cfg := Config{Logger: zap.NewNop().Sugar(), Compiler: c, Registry: reg}
	if withStore {
		s, err := store.New(store.Config{DSN: ":memory:"})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		cfg.Store = s
	}
	// templates and static files live in repository root
	b, err := New(cfg, os.DirFS(".."))
	require.NoError(t, err)
	return b
}

func do(b *WebBackend, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	b.Handler().ServeHTTP(w, req)
	return w
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Config{}, os.DirFS(".."))
	assert.Error(t, err)
	_, err = New(Config{Logger: zap.NewNop().Sugar()}, os.DirFS(".."))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	b := newBackend(t, false)
	w := do(b, http.MethodPost, "/api/v1/validate", validConfig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Valid    bool
		Name     string
		Entities []project.Entity
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Valid)
	assert.Equal(t, "kitchen", out.Name)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "kitchen_lux", out.Entities[0].ObjectID)

	w = do(b, http.MethodPost, "/api/v1/validate", strings.Replace(validConfig, "    low_level: 10\n", "", 1))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"path":"sensor.0.low_level"`)
	assert.Contains(t, w.Body.String(), "required key not provided")
}

func TestCompileRecordsBuilds(t *testing.T) {
	b := newBackend(t, true)
	w := do(b, http.MethodPost, "/api/v1/compile", validConfig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "set_illuminance_sensor")
	assert.Contains(t, w.Body.String(), `"directives"`)

	w = do(b, http.MethodPost, "/api/v1/compile?format=cpp", validConfig)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "// Auto generated code"))

	w = do(b, http.MethodPost, "/api/v1/compile", "esphome:\n  name: x\nsensor:\n  - platform: tcs34725\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(b, http.MethodGet, "/api/v1/builds", "")
	require.Equal(t, http.StatusOK, w.Code)
	var builds []store.Build
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &builds))
	require.Len(t, builds, 3)
	assert.False(t, builds[0].Success)
	assert.True(t, builds[2].Success)
	assert.Equal(t, "kitchen", builds[2].Node)

	w = do(b, http.MethodGet, "/api/v1/builds/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var build store.Build
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &build))
	assert.Contains(t, build.Program, "tcs34725::TCS34725Component")

	assert.Equal(t, http.StatusNotFound, do(b, http.MethodGet, "/api/v1/builds/42", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(b, http.MethodGet, "/api/v1/builds/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(b, http.MethodGet, "/api/v1/builds?limit=-1", "").Code)

	w = do(b, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kitchen")
	assert.Contains(t, w.Body.String(), "tcs34725.led_on")
}

func TestReadings(t *testing.T) {
	b := newBackend(t, true)
	require.NoError(t, b.store.SaveReading(&store.Reading{TS: time.Now(), Node: "kitchen", Sensor: "kitchen_lux", Value: 120}))
	w := do(b, http.MethodGet, "/api/v1/readings/kitchen?sensor=kitchen_lux", "")
	require.Equal(t, http.StatusOK, w.Code)
	var r []store.Reading
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	require.Len(t, r, 1)
	assert.Equal(t, 120.0, r[0].Value)
}

func TestWithoutStore(t *testing.T) {
	b := newBackend(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, do(b, http.MethodGet, "/api/v1/builds", "").Code)
	assert.Equal(t, http.StatusOK, do(b, http.MethodPost, "/api/v1/compile", validConfig).Code)
	assert.Equal(t, http.StatusOK, do(b, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusNotFound, do(b, http.MethodGet, "/nope", "").Code)
}

func TestActions(t *testing.T) {
	b := newBackend(t, false)
	w := do(b, http.MethodGet, "/api/v1/actions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"name": "tcs34725.led_off", "class": "tcs34725::TCS34725LEDOff"},
		{"name": "tcs34725.led_on", "class": "tcs34725::TCS34725LEDOn"}
	]`, w.Body.String())
}
