package transport

// Subnet broadcast resolution
// ---------------------------
// LSNP broadcasts are subnet-scoped only: the target is the all-ones host
// address of the interface carrying the default route, never the global
// 255.255.255.255. Interface inspection goes through gopsutil, which exposes
// the per-interface CIDR list uniformly across platforms.

import (
	"fmt"
	"net"
	"strings"

	psnet "github.com/shirou/gopsutil/net"
)

// LocalIP returns the IPv4 address of the interface carrying the default
// route, found by opening an unconnected UDP socket toward a public address
// (no packet is sent). Falls back to loopback when the host is offline.
func LocalIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// SubnetBroadcast resolves the broadcast address of the subnet containing
// localIP by scanning interface address lists. When no interface matches,
// the /24 guess x.y.z.255 is returned.
func SubnetBroadcast(localIP string) string {
	ip := net.ParseIP(localIP)
	if ip == nil || ip.To4() == nil {
		return fallbackBroadcast(localIP)
	}
	ifaces, err := psnet.Interfaces()
	if err != nil {
		return fallbackBroadcast(localIP)
	}
	for _, iface := range ifaces {
		for _, addr := range iface.Addrs {
			_, ipnet, err := net.ParseCIDR(addr.Addr)
			if err != nil || ipnet.IP.To4() == nil {
				continue
			}
			if ipnet.Contains(ip) {
				return broadcastOf(ipnet)
			}
		}
	}
	return fallbackBroadcast(localIP)
}

// broadcastOf computes the all-ones host address of an IPv4 network.
func broadcastOf(ipnet *net.IPNet) string {
	ip4 := ipnet.IP.To4()
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	out := make(net.IP, net.IPv4len)
	for i := 0; i < net.IPv4len; i++ {
		out[i] = ip4[i] | ^mask[i]
	}
	return out.String()
}

// fallbackBroadcast guesses a /24 broadcast from the local address. Returns
// "" for unusable input; the global broadcast address is never substituted.
func fallbackBroadcast(localIP string) string {
	parts := strings.Split(localIP, ".")
	if len(parts) != 4 {
		return ""
	}
	return fmt.Sprintf("%s.%s.%s.255", parts[0], parts[1], parts[2])
}
