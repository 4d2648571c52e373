package scpi

import (
  "errors"
  "fmt"
  "net"
  "net/url"
  "strconv"
  "strings"
)

var (
  ErrInvalidAddress = errors.New("invalid instrument address")
  ErrUnsupportedResource = errors.New("unsupported instrument resource")
)

const (
  DefaultSocketPort = 5025
  DefaultBaudRate = 9600
)

type Transport uint8

const (
  TransportTCP Transport = iota
  TransportSerial
)

func (t Transport) String() string {
  switch t {
  case TransportTCP:
    return "tcp"
  case TransportSerial:
    return "serial"
  default:
    panic("unknown transport: " + strconv.Itoa(int(t)))
  }
}

// Address is a parsed instrument resource. Exactly one of Host (TCP) or Device (serial) is set.
type Address struct {
  Transport Transport
  Host string
  Device string
  BaudRate int

  raw string
}

// ParseAddress accepts the following forms:
//
//   TCPIP0::192.168.1.10::5025::SOCKET
//   192.168.1.10:5025, tcp://192.168.1.10:5025
//   ASRL/dev/ttyUSB0::INSTR
//   serial:///dev/ttyUSB0?baud=115200
//
// VXI-11 (TCPIP::host::INSTR) and HiSLIP resources are not supported.
func ParseAddress(s string) (Address, error) {
  raw := strings.TrimSpace(s)

  if raw == "" {
    return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
  }

  upper := strings.ToUpper(raw)

  switch {
  case strings.HasPrefix(upper, "TCPIP"):
    return parseVisaTCPIP(raw)
  case strings.HasPrefix(upper, "ASRL"):
    return parseVisaSerial(raw)
  case strings.HasPrefix(upper, "GPIB"), strings.HasPrefix(upper, "USB"):
    return Address{}, fmt.Errorf("%w: %q", ErrUnsupportedResource, raw)
  case strings.Contains(raw, "://"):
    return parseURL(raw)
  }

  return parseHostPort(raw, raw)
}

func parseVisaTCPIP(raw string) (Address, error) {
  parts := strings.Split(raw, "::")
  board := strings.ToUpper(parts[0])

  if _, err := strconv.Atoi(strings.TrimPrefix(board, "TCPIP") + "0"); err != nil {
    return Address{}, fmt.Errorf("%w: bad interface %q", ErrInvalidAddress, parts[0])
  }

  if len(parts) < 2 || parts[1] == "" {
    return Address{}, fmt.Errorf("%w: missing host in %q", ErrInvalidAddress, raw)
  }

  class := strings.ToUpper(parts[len(parts)-1])

  switch class {
  case "SOCKET":
    if len(parts) != 4 {
      return Address{}, fmt.Errorf("%w: want TCPIP::host::port::SOCKET, got %q", ErrInvalidAddress, raw)
    }

    return parseHostPort(raw, net.JoinHostPort(parts[1], parts[2]))
  case "INSTR":
    return Address{}, fmt.Errorf("%w: VXI-11/HiSLIP resource %q, use the ::SOCKET form", ErrUnsupportedResource, raw)
  default:
    return Address{}, fmt.Errorf("%w: unknown resource class %q", ErrInvalidAddress, class)
  }
}

func parseVisaSerial(raw string) (Address, error) {
  parts := strings.Split(raw, "::")

  if len(parts) != 2 || !strings.EqualFold(parts[1], "INSTR") {
    return Address{}, fmt.Errorf("%w: want ASRL<device>::INSTR, got %q", ErrInvalidAddress, raw)
  }

  dev := parts[0][len("ASRL"):]

  if dev == "" {
    return Address{}, fmt.Errorf("%w: missing serial device in %q", ErrInvalidAddress, raw)
  }

  // ASRL1 is COM1 on windows-style resources.
  if n, err := strconv.Atoi(dev); err == nil {
    dev = "COM" + strconv.Itoa(n)
  }

  return Address{
    Transport: TransportSerial,
    Device: dev,
    BaudRate: DefaultBaudRate,
    raw: raw,
  }, nil
}

func parseURL(raw string) (Address, error) {
  u, err := url.Parse(raw)

  if err != nil {
    return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
  }

  switch strings.ToLower(u.Scheme) {
  case "tcp":
    return parseHostPort(raw, u.Host)
  case "serial":
    dev := u.Path

    if dev == "" {
      dev = u.Opaque
    }

    if dev == "" {
      return Address{}, fmt.Errorf("%w: missing serial device in %q", ErrInvalidAddress, raw)
    }

    baud := DefaultBaudRate

    if b := u.Query().Get("baud"); b != "" {
      baud, err = strconv.Atoi(b)

      if err != nil || baud <= 0 {
        return Address{}, fmt.Errorf("%w: bad baud rate %q", ErrInvalidAddress, b)
      }
    }

    return Address{
      Transport: TransportSerial,
      Device: dev,
      BaudRate: baud,
      raw: raw,
    }, nil
  default:
    return Address{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedResource, u.Scheme)
  }
}

func parseHostPort(raw, hostport string) (Address, error) {
  host, port, err := net.SplitHostPort(hostport)

  if err != nil {
    // bare host, use the SCPI raw socket port.
    host, port = hostport, strconv.Itoa(DefaultSocketPort)
  }

  if host == "" || strings.ContainsAny(host, " /") {
    return Address{}, fmt.Errorf("%w: bad host in %q", ErrInvalidAddress, raw)
  }

  if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
    return Address{}, fmt.Errorf("%w: bad port %q", ErrInvalidAddress, port)
  }

  return Address{
    Transport: TransportTCP,
    Host: net.JoinHostPort(host, port),
    raw: raw,
  }, nil
}

// Key identifies the physical endpoint regardless of how the address was spelled.
func (a Address) Key() string {
  if a.Transport == TransportSerial {
    return "serial:" + a.Device
  }

  return "tcp:" + a.Host
}

func (a Address) String() string {
  if a.raw != "" {
    return a.raw
  }

  return a.Key()
}
