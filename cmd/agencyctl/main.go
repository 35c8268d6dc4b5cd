// agencyctl is the non-interactive wire client: it sends one command
// to a reservation server over TCP or UDP and prints the response
// lines. It speaks exactly the protocols the server binds; it carries
// no business logic of its own.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/reservectl/internal/protocol"
	"github.com/danmuck/reservectl/internal/protocol/datagram"
)

const defaultConfigPath = "cmd/agencyctl/config.toml"

// clientConfig binds the client to one server's endpoints.
type clientConfig struct {
	StreamAddr   string `toml:"stream_addr"`
	DatagramAddr string `toml:"datagram_addr"`
	TimeoutMS    int    `toml:"timeout_ms"`
	MaxRetries   int    `toml:"max_retries"`
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		StreamAddr:   "127.0.0.1:8080",
		DatagramAddr: "127.0.0.1:8082",
		TimeoutMS:    2000,
		MaxRetries:   4,
	}
}

func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return clientConfig{}, fmt.Errorf("client config load failed (%s): %w", path, err)
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: agencyctl [flags] <command> [args]

commands:
  list
  reserve <ref> <seats> <agency>
  cancel  <ref> <seats> <agency>
  invoice <agency>

flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "client config path")
	transport := flag.String("transport", "tcp", "transport: tcp|udp")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadClientConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	op := strings.ToUpper(args[0])
	line := strings.TrimSpace(op + " " + strings.Join(args[1:], " "))

	switch *transport {
	case "tcp":
		err = runStream(cfg, line)
	case "udp":
		err = runDatagram(cfg, op, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown transport: %s\n", *transport)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runStream sends one line and prints everything up to the END
// marker, surfacing interim WAIT notices as they arrive.
func runStream(cfg clientConfig, line string) error {
	conn, err := net.DialTimeout("tcp", cfg.StreamAddr, time.Duration(cfg.TimeoutMS)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.StreamAddr, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	reader := bufio.NewReader(conn)
	for {
		reply, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		reply = strings.TrimRight(reply, "\n")
		if reply == protocol.EndMarker {
			return nil
		}
		fmt.Println(reply)
	}
}

func runDatagram(cfg clientConfig, op string, args []string) error {
	tag, ok := datagram.TagForOp(op)
	if !ok {
		return fmt.Errorf("unknown command: %s", op)
	}
	client, err := datagram.Dial(cfg.DatagramAddr, datagram.Config{
		Timeout:    time.Duration(cfg.TimeoutMS) * time.Millisecond,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Do(tag, []byte(strings.Join(args, " ")))
	if err != nil {
		return err
	}
	fmt.Println(string(reply.Payload))
	return nil
}
