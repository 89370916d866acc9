// asebactl is a small link utility: it connects to a robot, prints the
// discovered nodes and their variables, and can set or watch a variable
// from the command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"asebalink"
	"asebalink/internal/config"
	"asebalink/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a link config TOML file")
	port := flag.String("port", "", "serial device or host:port (overrides config)")
	setSpec := flag.String("set", "", "write a variable, e.g. motor.target=100,-100")
	watch := flag.String("watch", "", "variable to watch at the refresh rate")
	watchFor := flag.Duration("watch-for", 5*time.Second, "how long to watch")
	flag.Parse()

	logging.ConfigureRuntime()

	if err := run(*configPath, *port, *setSpec, *watch, *watchFor); err != nil {
		fmt.Fprintf(os.Stderr, "asebactl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, port, setSpec, watch string, watchFor time.Duration) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadLinkConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if port != "" {
		cfg.Port = port
	}

	robot := asebalink.New(
		asebalink.WithPort(cfg.Port),
		asebalink.WithRefreshingRate(cfg.RefreshingRate()),
		asebalink.WithRefreshingCoverage(cfg.RefreshingCoverage...),
		asebalink.WithConnectTimeout(cfg.ConnectTimeout()),
		asebalink.WithGetTimeout(cfg.GetTimeout()),
		asebalink.WithLostAfterMisses(cfg.LostAfterMisses),
	)
	if err := robot.Connect(); err != nil {
		return err
	}
	defer robot.Close()

	nodes, err := robot.Nodes()
	if err != nil {
		return err
	}
	for _, id := range nodes {
		if err := printNode(robot, id); err != nil {
			return err
		}
	}

	first, err := robot.FirstNode()
	if err != nil {
		return err
	}

	if setSpec != "" {
		name, values, err := parseSetSpec(setSpec)
		if err != nil {
			return err
		}
		if err := robot.Set(first, name, values); err != nil {
			return err
		}
		fmt.Printf("set %s = %v\n", name, values)
	}

	if watch != "" {
		return watchVariable(robot, first, watch, watchFor)
	}
	return nil
}

func printNode(robot *asebalink.Robot, id uint16) error {
	info, err := robot.Node(id)
	if err != nil {
		return err
	}
	fmt.Printf("node %d %q (%s, protocol %d)\n", info.ID, info.Name, info.State, info.Version)
	if info.DeviceName != "" {
		fmt.Printf("  device %q\n", info.DeviceName)
	}
	for _, v := range info.Variables {
		values, err := robot.Get(id, v.Name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-24s [%d]%v\n", v.Name, v.Size, values)
	}
	for _, name := range info.LocalEvents {
		fmt.Printf("  event %s\n", name)
	}
	for _, name := range info.NativeFunctions {
		fmt.Printf("  native %s\n", name)
	}
	return nil
}

func watchVariable(robot *asebalink.Robot, node uint16, name string, dur time.Duration) error {
	updates := make(chan []int16, 16)
	err := robot.SetVariableObserver(node, func(uint16) {
		if v, err := robot.Get(node, name); err == nil {
			select {
			case updates <- v:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer robot.SetVariableObserver(node, nil)

	deadline := time.After(dur)
	for {
		select {
		case v := <-updates:
			fmt.Printf("%s %s = %v\n", time.Now().Format("15:04:05.000"), name, v)
		case <-deadline:
			return nil
		}
	}
}

// parseSetSpec splits "name=v1,v2,..." into a variable name and values.
func parseSetSpec(spec string) (string, []int16, error) {
	name, raw, ok := strings.Cut(spec, "=")
	if !ok || name == "" || raw == "" {
		return "", nil, fmt.Errorf("bad -set spec %q, want name=v1,v2", spec)
	}
	parts := strings.Split(raw, ",")
	values := make([]int16, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return "", nil, fmt.Errorf("bad -set value %q: %w", p, err)
		}
		values[i] = int16(n)
	}
	return name, values, nil
}
