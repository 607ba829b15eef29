package config

import (
	"fmt"
	"os"
	"strings"
)

// template is a starter file and where configgen writes it by default.
type template struct {
	body string
	path string
}

var templates = map[string]template{
	"framectl": {body: framectlTemplate, path: "cmd/framectl/config.toml"},
	"schemas":  {body: schemasTemplate, path: "cmd/framectl/schemas.json"},
}

func lookupTemplate(kind string) (template, error) {
	tpl, ok := templates[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return template{}, fmt.Errorf("unknown template kind: %s", kind)
	}
	return tpl, nil
}

// Template returns the starter body for kind (framectl or schemas).
func Template(kind string) (string, error) {
	tpl, err := lookupTemplate(kind)
	return tpl.body, err
}

// DefaultPath is where configgen writes kind when no output is given.
func DefaultPath(kind string) (string, error) {
	tpl, err := lookupTemplate(kind)
	return tpl.path, err
}

// WriteTemplate writes kind to path. Without overwrite an existing file is
// left alone and the error wraps fs.ErrExist.
func WriteTemplate(path, kind string, overwrite bool) error {
	tpl, err := lookupTemplate(kind)
	if err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("write %s template: %w", kind, err)
	}
	if _, err := f.WriteString(tpl.body); err != nil {
		f.Close()
		return fmt.Errorf("write %s template: %w", kind, err)
	}
	return f.Close()
}

const framectlTemplate = `# schema_files = ["schemas.json"]

[header]
id_field = "msg_id"
size_field = "size"
fields = [
  { name = "seq", type = "Uint32" },
  { name = "cls", type = "Uint8" },
  { name = "msg_id", type = "Uint8" },
  { name = "size", type = "Uint32" },
]

[limits]
max_payload_bytes = 8388608

[messages.Position]
id = 1
fields = [
  { name = "lat", type = "Float64" },
  { name = "lon", type = "Float64" },
]

[messages.Sat]
fields = [
  { name = "prn", type = "Uint8" },
  { name = "snr", type = "Float32" },
]

[messages.Status]
id = 2
fields = [
  { name = "mode", type = "String" },
  { name = "sats", type = "Sat[]" },
  { name = "flags", type = "Uint8[4]" },
]
`

const schemasTemplate = `{
  "Event": {
    "id": 3,
    "fields": [
      {"name": "code", "type": "Uint16"},
      {"name": "text", "type": "String"},
      {"name": "args", "type": "Int32[]"}
    ]
  },
  "Heartbeat": {
    "id": 4,
    "fields": [
      {"name": "uptime", "type": "Uint64"}
    ]
  }
}
`
