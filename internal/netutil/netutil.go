// Package netutil resolves a network interface name to the local IPv4
// address Meadow should bind its listeners to.
package netutil

import (
	"net"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
)

// ResolveInterfaceIPv4 finds the named interface and returns its first
// IPv4 address, failing with KindInvalidInterface if the interface does not
// exist, is down, or carries no IPv4 address.
func ResolveInterfaceIPv4(name string) (net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInvalidInterface, name, err)
	}
	if iface.Flags&net.FlagUp == 0 {
		return nil, merrors.New(merrors.KindInvalidInterface, name+" is not up")
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInvalidInterface, name, err)
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, merrors.New(merrors.KindInvalidInterface, name+" has no IPv4 address")
}
