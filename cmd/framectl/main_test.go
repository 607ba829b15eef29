package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/schemawire/internal/config"
	"github.com/danmuck/schemawire/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *app {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.WriteTemplate(path, "framectl", false))
	a, err := load(path, testlog.Start(t))
	require.NoError(t, err)
	return a
}

const encodeInput = `{"message":"Position","header":{"seq":1,"cls":0},"payload":{"lat":51.5,"lon":-0.25}}
{"id":2,"header":{"seq":2,"cls":1},"payload":{"mode":"fix","sats":[{"prn":3,"snr":40.5}],"flags":[1,0,0,1]}}
`

func TestEncodeDecodeCapture(t *testing.T) {
	a := testApp(t)

	var capture bytes.Buffer
	require.NoError(t, a.run("encode", strings.NewReader(encodeInput), &capture))
	// Two 10-byte headers, Position 16 bytes, Status 4+3 + 4+(1+4) + 4.
	assert.Equal(t, 10+16+10+20, capture.Len())

	var out bytes.Buffer
	require.NoError(t, a.run("decode", &capture, &out))

	var lines []map[string]any
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, "Position", lines[0]["message"])
	assert.Equal(t, float64(0), lines[0]["offset"])
	payload := lines[0]["payload"].(map[string]any)
	assert.Equal(t, 51.5, payload["lat"])
	assert.Equal(t, -0.25, payload["lon"])

	assert.Equal(t, "Status", lines[1]["message"])
	assert.Equal(t, float64(26), lines[1]["offset"])
	status := lines[1]["payload"].(map[string]any)
	assert.Equal(t, "fix", status["mode"])
	assert.Equal(t, []any{float64(1), float64(0), float64(0), float64(1)}, status["flags"])
	sats := status["sats"].([]any)
	require.Len(t, sats, 1)
	assert.Equal(t, float64(3), sats[0].(map[string]any)["prn"])
	assert.Equal(t, float64(2), lines[1]["header"].(map[string]any)["seq"])
}

func TestLargeUint64SurvivesDecodeEncode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[messages.Tick]
id = 5
fields = [{ name = "at", type = "Uint64" }, { name = "mid", type = "Uint64" }]
`), 0o600))
	a, err := load(path, testlog.Start(t))
	require.NoError(t, err)

	in := `{"message":"Tick","header":{"seq":1,"cls":0},"payload":{"at":18446744073709551615,"mid":9223372036854775809}}`
	var capture bytes.Buffer
	require.NoError(t, a.run("encode", strings.NewReader(in), &capture))
	raw := capture.Bytes()
	require.Len(t, raw, 10+16)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 8), raw[10:18])

	var decoded bytes.Buffer
	require.NoError(t, a.run("decode", bytes.NewReader(raw), &decoded))
	assert.Contains(t, decoded.String(), `"at":18446744073709551615`)
	assert.Contains(t, decoded.String(), `"mid":9223372036854775809`)

	// decode output is valid encode input
	var again bytes.Buffer
	require.NoError(t, a.run("encode", bytes.NewReader(decoded.Bytes()), &again))
	assert.Equal(t, raw, again.Bytes())
}

func TestEncodeRejectsBadInput(t *testing.T) {
	a := testApp(t)
	tests := []struct {
		name  string
		input string
	}{
		{name: "unknown message", input: `{"message":"Nope","payload":{}}`},
		{name: "unaddressable schema", input: `{"message":"Sat","header":{"seq":1,"cls":0},"payload":{"prn":1,"snr":1}}`},
		{name: "missing field", input: `{"message":"Position","header":{"seq":1,"cls":0},"payload":{"lat":1}}`},
		{name: "bad json", input: `{"message":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.Error(t, a.run("encode", strings.NewReader(tt.input), &out))
			assert.Zero(t, out.Len())
		})
	}
}

func TestDecodeRejectsTruncatedCapture(t *testing.T) {
	a := testApp(t)
	var capture bytes.Buffer
	require.NoError(t, a.run("encode", strings.NewReader(encodeInput), &capture))
	truncated := capture.Bytes()[:capture.Len()-1]
	require.Error(t, a.run("decode", bytes.NewReader(truncated), &bytes.Buffer{}))
}

func TestSchemasAndModes(t *testing.T) {
	a := testApp(t)
	var out bytes.Buffer
	require.NoError(t, a.run("schemas", nil, &out))
	text := out.String()
	assert.Contains(t, text, "Position{id=1 size=16")
	assert.Contains(t, text, "Sat{id=0")
	assert.Contains(t, text, "sats:Sat[]@4")

	require.Error(t, a.run("serve", nil, &out))
}

func TestDumpMetrics(t *testing.T) {
	a := testApp(t)
	require.NoError(t, a.run("encode", strings.NewReader(encodeInput), &bytes.Buffer{}))
	var out bytes.Buffer
	require.NoError(t, dumpMetrics(&out))
	assert.Contains(t, out.String(), `schemawire_frame_encoded_total{message="Position"}`)
}
