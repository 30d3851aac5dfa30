package printer

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
)

// DefaultRawPort is the raw printing (JetDirect) port
const DefaultRawPort = 9100

const writeTimeout = 10 * time.Second

// rawPrintService is the mDNS service type advertised by raw-port printers
const rawPrintService = "_pdl-datastream._tcp"

// NetworkTransport writes raw bytes to a printer over TCP
type NetworkTransport struct {
	conn net.Conn
}

// DialNetwork connects to a network printer. A missing port defaults to 9100.
func DialNetwork(ctx context.Context, address string) (*NetworkTransport, DeviceInfo, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, strconv.Itoa(DefaultRawPort))
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, DeviceInfo{}, &TransferError{Op: "connect to " + address, Err: err}
	}

	info := DeviceInfo{
		Name:       "Impresora de Red",
		Vendor:     "Desconocido",
		Connection: "network",
		Address:    address,
	}
	return &NetworkTransport{conn: conn}, info, nil
}

// Write sends data, bounded by the context deadline or a default timeout
func (t *NetworkTransport) Write(ctx context.Context, data []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return &TransferError{Op: "write", Err: err}
	}
	if _, err := t.conn.Write(data); err != nil {
		return &TransferError{Op: "write", Err: err}
	}
	return nil
}

// Close closes the connection
func (t *NetworkTransport) Close() error {
	return t.conn.Close()
}

// NetworkPrinter is a printer found through mDNS
type NetworkPrinter struct {
	Name    string `json:"name"`
	Host    string `json:"host"`
	Address string `json:"address"` // host:port ready for DialNetwork
}

// Discover browses the local network for raw-port printers until the
// timeout expires.
func Discover(ctx context.Context, timeout time.Duration) ([]NetworkPrinter, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, rawPrintService, "local.", entries); err != nil {
		return nil, fmt.Errorf("failed to browse for printers: %w", err)
	}

	var found []NetworkPrinter
	seen := map[string]bool{}
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			if p, ok := printerFromEntry(entry); ok && !seen[p.Address] {
				seen[p.Address] = true
				found = append(found, p)
			}
		case <-ctx.Done():
			log.Printf("[INFO] Network printer discovery finished | %d found", len(found))
			return found, nil
		}
	}
}

func printerFromEntry(entry *zeroconf.ServiceEntry) (NetworkPrinter, bool) {
	if entry == nil {
		return NetworkPrinter{}, false
	}
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		host = entry.HostName
	}
	if host == "" {
		return NetworkPrinter{}, false
	}
	port := entry.Port
	if port == 0 {
		port = DefaultRawPort
	}
	return NetworkPrinter{
		Name:    entry.Instance,
		Host:    host,
		Address: net.JoinHostPort(host, strconv.Itoa(port)),
	}, true
}
