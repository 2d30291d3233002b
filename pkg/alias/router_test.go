// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package alias

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Add(t *testing.T) {
	var r Router
	r.Add(addr("10.0.0.9"), FirstIP)
	r.Add(addr("10.0.0.1"), IPIDVelocity)
	r.Add(addr("10.0.0.5"), ReverseDNS)
	r.Add(addr("10.0.0.1"), ReverseDNS)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "10.0.0.1 10.0.0.5 10.0.0.9", r.String())
	assert.Equal(t, IPIDVelocity, r.Interfaces()[0].Method, "first method wins")
	assert.True(t, r.HasInterface(addr("10.0.0.5")))
	assert.False(t, r.HasInterface(addr("10.0.0.6")))
	assert.Equal(t, "10.0.0.1 (IP-ID Velocity), 10.0.0.5 (Reverse DNS), 10.0.0.9 (First IP)", r.Verbose())
}

func TestRouter_Equal(t *testing.T) {
	a := NewRouter(Interface{Addr: addr("10.0.0.1"), Method: FirstIP}, Interface{Addr: addr("10.0.0.2"), Method: IPIDVelocity})
	b := NewRouter(Interface{Addr: addr("10.0.0.2"), Method: ReverseDNS}, Interface{Addr: addr("10.0.0.1"), Method: GroupEcho})
	c := NewRouter(Interface{Addr: addr("10.0.0.1"), Method: FirstIP})

	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
	assert.False(t, c.Equal(a))
}

func TestCompare(t *testing.T) {
	routers := []Router{
		NewRouter(Interface{Addr: addr("10.0.0.7")}, Interface{Addr: addr("10.0.0.8")}),
		NewRouter(Interface{Addr: addr("10.0.0.9")}),
		NewRouter(Interface{Addr: addr("10.0.0.3")}, Interface{Addr: addr("10.0.0.4")}),
		NewRouter(Interface{Addr: addr("10.0.0.2")}),
	}
	slices.SortFunc(routers, Compare)
	assert.Equal(t, []string{"10.0.0.2", "10.0.0.9", "10.0.0.3 10.0.0.4", "10.0.0.7 10.0.0.8"}, routerStrings(routers))
}

func TestMethod_String(t *testing.T) {
	tests := map[Method]string{
		UDPPortUnreachable: "UDP unreachable port",
		Ally:               "Ally",
		IPIDVelocity:       "IP-ID Velocity",
		ReverseDNS:         "Reverse DNS",
		GroupEcho:          "Echo group",
		GroupEchoDNS:       "Echo group & DNS",
		GroupRandom:        "Random group",
		GroupRandomDNS:     "Random group & DNS",
		Method(99):         "Not aliased",
	}
	for m, want := range tests {
		assert.Equal(t, want, m.String())
	}
}

func TestRouter_MarshalJSON(t *testing.T) {
	r := NewRouter(Interface{Addr: addr("10.0.0.1"), Method: ReverseDNS})
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"interfaces":[{"addr":"10.0.0.1","method":"Reverse DNS"}]}`, string(b))
}
