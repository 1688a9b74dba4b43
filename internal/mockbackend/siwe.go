// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"context"
	"strings"

	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/service"
)

func (b *Backend) registerSiwe() {
	canister := b.siweCanister

	b.handle(canister, "get_principal", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Text())
		if err != nil {
			return nil, err
		}
		address := args[0].(string)
		b.mu.Lock()
		defer b.mu.Unlock()
		p, ok := b.addresses[strings.ToLower(address)]
		if !ok {
			return map[string]any{"Err": "Principal not found"}, nil
		}
		return map[string]any{"Ok": p.Bytes()}, nil
	})

	b.handle(canister, "get_address", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Blob())
		if err != nil {
			return nil, err
		}
		p, err := principal.FromBytes(args[0].([]byte))
		if err != nil {
			return map[string]any{"Err": "Invalid principal"}, nil
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for address, linked := range b.addresses {
			if linked == p {
				return map[string]any{"Ok": b.checksums[address]}, nil
			}
		}
		return map[string]any{"Err": "Address not found"}, nil
	})
}

// LinkAddress records that the Ethereum address signed in as p.
// Lookups ignore the address's case; get_address returns it as given.
func (b *Backend) LinkAddress(address string, p principal.Principal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToLower(address)
	b.addresses[key] = p
	b.checksums[key] = address
}
