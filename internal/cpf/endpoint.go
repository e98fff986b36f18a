package cpf

import (
	"errors"
	"fmt"

	"firestige.xyz/enipaddr/internal/core"
	"firestige.xyz/enipaddr/pkg/sockaddr"
)

// Endpoint is a socket address found in a message, together with the item
// that carried it.
type Endpoint struct {
	Item ItemType
	Addr sockaddr.SockAddr
}

// Endpoints returns every socket address carried by m: SockAddr Info Items
// and the address embedded in ListIdentity items. Structurally invalid
// addresses are returned too; callers check Addr.IsValid. Items that cannot
// be decoded at all are skipped and reported in the joined error.
func (m Message) Endpoints() ([]Endpoint, error) {
	var (
		out  []Endpoint
		errs []error
	)
	for i, it := range m.Items {
		switch {
		case it.Type.IsSockAddr():
			sa, err := CheckSockAddr(it)
			if err != nil && !errors.Is(err, core.ErrInvalidSockAddr) {
				errs = append(errs, fmt.Errorf("item %d: %w", i, err))
				continue
			}
			out = append(out, Endpoint{Item: it.Type, Addr: sa})
		case it.Type == ItemListIdentity:
			id, err := DecodeIdentity(it.Data)
			if err != nil {
				errs = append(errs, fmt.Errorf("item %d: %w", i, err))
				continue
			}
			out = append(out, Endpoint{Item: it.Type, Addr: id.SockAddr})
		}
	}
	return out, errors.Join(errs...)
}
