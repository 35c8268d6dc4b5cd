package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server":
		return serverTemplate, nil
	case "agency":
		return agencyTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `name = "reservectl"
stream_addr = ":8080"
datagram_addr = ":8082"
admin_addr = ":9100"
data_dir = "data"
max_conns = 64
datagram_workers = 4
cors_origins = ["http://localhost:3000"]

[[flights]]
ref = 12
destination = "LIS"
seats = 50
price = 100

[[flights]]
ref = 23
destination = "CDG"
seats = 120
price = 85

[[flights]]
ref = 31
destination = "TUN"
seats = 80
price = 140
`

const agencyTemplate = `stream_addr = "127.0.0.1:8080"
datagram_addr = "127.0.0.1:8082"
timeout_ms = 2000
max_retries = 4
`
