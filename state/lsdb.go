package state

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

type LinkKind uint8

const (
	LinkRouter LinkKind = iota + 1
	LinkNetwork
)

// LSALink is one entry of an advertisement: either a neighbouring router or an attached network.
type LSALink struct {
	Kind     LinkKind
	Neighbor RouterId
	Network  netip.Prefix
	Cost     uint32
}

func (l LSALink) String() string {
	if l.Kind == LinkRouter {
		return fmt.Sprintf("router %s cost %d", l.Neighbor, l.Cost)
	}
	return fmt.Sprintf("network %s cost %d", l.Network, l.Cost)
}

type LSA struct {
	Origin     RouterId
	OriginNode NodeId
	Seq        uint32
	Links      []LSALink
}

// LSAKey identifies one instance of an advertisement.
type LSAKey struct {
	Origin RouterId
	Seq    uint32
}

func (l *LSA) Key() LSAKey {
	return LSAKey{Origin: l.Origin, Seq: l.Seq}
}

// Networks returns the network links of the advertisement.
func (l *LSA) Networks() []LSALink {
	res := make([]LSALink, 0, len(l.Links))
	for _, link := range l.Links {
		if link.Kind == LinkNetwork {
			res = append(res, link)
		}
	}
	return res
}

func (l *LSA) String() string {
	links := make([]string, 0, len(l.Links))
	for _, link := range l.Links {
		links = append(links, link.String())
	}
	return fmt.Sprintf("lsa %s(%s) seq %d [%s]", l.OriginNode, l.Origin, l.Seq, strings.Join(links, ", "))
}

// LSDB keeps the newest advertisement of every originator.
type LSDB struct {
	lsas map[RouterId]*LSA
}

func NewLSDB() *LSDB {
	return &LSDB{lsas: make(map[RouterId]*LSA)}
}

// Install stores lsa if its originator is unknown or its sequence number is strictly greater than
// the stored one; otherwise it returns ErrStaleLSA and leaves the database unchanged.
func (db *LSDB) Install(lsa *LSA) error {
	if old, ok := db.lsas[lsa.Origin]; ok && lsa.Seq <= old.Seq {
		return fmt.Errorf("%w: %s seq %d, have %d", ErrStaleLSA, lsa.Origin, lsa.Seq, old.Seq)
	}
	db.lsas[lsa.Origin] = lsa
	return nil
}

func (db *LSDB) Get(origin RouterId) (*LSA, bool) {
	lsa, ok := db.lsas[origin]
	return lsa, ok
}

func (db *LSDB) Len() int {
	return len(db.lsas)
}

// All returns the stored advertisements ordered by originator.
func (db *LSDB) All() []*LSA {
	res := make([]*LSA, 0, len(db.lsas))
	for _, lsa := range db.lsas {
		res = append(res, lsa)
	}
	slices.SortFunc(res, func(a, b *LSA) int {
		if a.Origin < b.Origin {
			return -1
		} else if a.Origin > b.Origin {
			return 1
		}
		return 0
	})
	return res
}
