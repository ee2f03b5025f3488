package main

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-ping/ping"
)

// getBatterySoc returns the battery soc from
// /sys/class/power_supply/battery/capacity, clamped to [0,100].
func getBatterySoc() (int, error) {
	content, err := os.ReadFile("/sys/class/power_supply/battery/capacity")
	if err != nil {
		return -1, err
	}
	soc, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return -1, err
	}
	if soc < 0 {
		soc = 0
	}
	if soc > 100 {
		soc = 100
	}
	return soc, nil
}

// getBatteryCharging reports whether the charger is supplying current,
// judged by the sign of current_now.
func getBatteryCharging() (bool, error) {
	content, err := os.ReadFile("/sys/class/power_supply/battery/current_now")
	if err != nil {
		return false, err
	}
	current, err := strconv.ParseFloat(strings.TrimSpace(string(content)), 64)
	if err != nil {
		return false, err
	}
	return current > 0, nil
}

// readBattery bundles both reads; OK is false when the sensor is absent so
// the renderer just leaves the annotation off.
func readBattery() batteryInfo {
	soc, err := getBatterySoc()
	if err != nil {
		return batteryInfo{}
	}
	charging, err := getBatteryCharging()
	if err != nil {
		charging = false
	}
	return batteryInfo{Soc: soc, Charging: charging, OK: true}
}

// defaultRoute returns the WAN interface name and gateway address from
// `ip route show default`.
func defaultRoute() (iface, gateway string, err error) {
	cmd := exec.Command("ip", "route", "show", "default")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", "", err
	}
	fields := strings.Fields(out.String())
	for i, field := range fields {
		if field == "dev" && i+1 < len(fields) {
			iface = fields[i+1]
		}
		if field == "via" && i+1 < len(fields) {
			gateway = fields[i+1]
		}
	}
	if iface == "" {
		return "", "", fmt.Errorf("no default route")
	}
	return iface, gateway, nil
}

// getLocalIPv4 returns the IPv4 address of the default-route interface.
func getLocalIPv4() (string, error) {
	ifaceName, _, err := defaultRoute()
	if err != nil {
		return "", err
	}
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return "", err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
	}
	return "", fmt.Errorf("interface %s has no IPv4 address", ifaceName)
}

// pingICMP sends one ICMP echo and returns the round-trip time. Raw ICMP
// usually requires root, which this process has for the panel anyway.
func pingICMP(host string) (time.Duration, error) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return 0, err
	}
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second

	if err := pinger.Run(); err != nil {
		return 0, err
	}
	return pinger.Statistics().AvgRtt, nil
}

// netInfo is the prober's output: the address the corner annotation shows,
// blanked to a placeholder while the gateway is unreachable.
type netInfo struct {
	mu        sync.RWMutex
	addr      string
	reachable bool
}

func (n *netInfo) set(addr string, reachable bool) {
	n.mu.Lock()
	n.addr = addr
	n.reachable = reachable
	n.mu.Unlock()
}

// CornerAddr is what the renderer prints for CornerNetworkAddress.
func (n *netInfo) CornerAddr() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.reachable || n.addr == "" {
		return "--.--.--.--"
	}
	return n.addr
}

// probeNetwork refreshes the local address and gateway reachability on a
// slow cadence. Failures just log; the display falls back to the
// placeholder.
func probeNetwork(info *netInfo) {
	for {
		addr, err := getLocalIPv4()
		if err != nil {
			log.Printf("local address lookup failed: %v", err)
			info.set("", false)
			time.Sleep(10 * time.Second)
			continue
		}

		reachable := true
		if _, gateway, err := defaultRoute(); err == nil && gateway != "" {
			if _, err := pingICMP(gateway); err != nil {
				reachable = false
			}
		}
		info.set(addr, reachable)
		time.Sleep(10 * time.Second)
	}
}

// deviceID is a short stable identifier for the corner annotation: the
// head of the machine id, or the hostname when that is missing.
func deviceID() string {
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		id := strings.TrimSpace(string(data))
		if len(id) >= 8 {
			return id[:8]
		}
	}
	host, err := os.Hostname()
	if err != nil {
		return "glowsign"
	}
	return host
}

// requestSleep asks the kernel for suspend-to-RAM. The render loop stops
// scheduling work once this is requested; nothing retries or rolls it back.
func requestSleep() {
	log.Println("long press: entering sleep")
	if err := os.WriteFile("/sys/power/state", []byte("mem"), 0644); err != nil {
		log.Printf("sleep request failed: %v", err)
	}
}
