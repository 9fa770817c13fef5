package nmap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse extracts every port of every host in document order. Malformed input
// yields an empty slice; the caller keeps the raw text.
func Parse(xmlText string) []PortRecord {
	ports, err := Decode(strings.NewReader(xmlText))
	if err != nil {
		return []PortRecord{}
	}
	return ports
}

// Decode reads nmap XML. Hosts are the direct children of the root element;
// ports may sit at any depth below a host, while state and service must be
// direct children of their port.
func Decode(r io.Reader) ([]PortRecord, error) {
	dec := xml.NewDecoder(r)

	type openPort struct {
		index       int // into ports
		depth       int // depth of the <port> element
		haveState   bool
		haveService bool
	}

	ports := []PortRecord{}
	var (
		depth     int
		rootSeen  bool
		rootDone  bool
		hostDepth int // 0 when outside a host
		stack     []openPort
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode nmap xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if rootDone {
					return nil, errors.New("decode nmap xml: multiple root elements")
				}
				rootSeen = true
				continue
			}
			if depth == 2 && t.Name.Local == "host" {
				hostDepth = depth
				continue
			}
			if hostDepth == 0 {
				continue
			}

			switch t.Name.Local {
			case "port":
				ports = append(ports, PortRecord{
					Port:     attr(t, "portid"),
					Protocol: attr(t, "protocol"),
				})
				stack = append(stack, openPort{index: len(ports) - 1, depth: depth})
			case "state", "service":
				if len(stack) == 0 {
					continue
				}
				current := &stack[len(stack)-1]
				if depth != current.depth+1 {
					continue
				}
				// first matching child wins
				rec := &ports[current.index]
				if t.Name.Local == "state" && !current.haveState {
					rec.State = attr(t, "state")
					current.haveState = true
				}
				if t.Name.Local == "service" && !current.haveService {
					rec.Service = attr(t, "name")
					current.haveService = true
				}
			}

		case xml.CharData:
			if depth == 0 && len(strings.TrimSpace(string(t))) > 0 {
				return nil, errors.New("decode nmap xml: text outside the root element")
			}

		case xml.EndElement:
			if len(stack) > 0 && stack[len(stack)-1].depth == depth {
				stack = stack[:len(stack)-1]
			}
			if depth == hostDepth {
				hostDepth = 0
			}
			if depth == 1 {
				rootDone = true
			}
			depth--
		}
	}

	if !rootSeen {
		return nil, errors.New("decode nmap xml: no root element")
	}
	if depth != 0 {
		return nil, errors.New("decode nmap xml: unexpected end of document")
	}

	for i := range ports {
		ports[i].Raw = ports[i].Port + "/" + ports[i].Protocol + " " + ports[i].State + " " + ports[i].Service
	}
	return ports, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
