/*
Package pairsdk provides a client SDK for the SlideTab device pairing service.

# Overview

The pairsdk package implements the client side of the pairing ceremony: a
device registers and receives a short code, the user approves that code from
an already-authenticated surface, and the device polls the exchange endpoint
until it is handed a signed device token.

# Client vs SessionManager

The package is organized around two main types:

  - Client: a thin typed HTTP client for the pairing endpoints
  - SessionManager: the session state machine that drives the ceremony,
    persists credentials, and reconciles state across process restarts

Use the Client directly for one-off calls:

	client := pairsdk.NewClient("https://pairing.example.com")

	reg, err := client.Register(ctx, "", "Kitchen Display")
	// show reg.PairingCode to the user...
	tok, err := client.Exchange(ctx, reg.DeviceID, reg.PairingCode)
	if pairsdk.IsNotReady(err) {
		// not approved yet, poll again after reg.PollIntervalSeconds
	}

Use the SessionManager when embedding pairing in an application. It owns the
polling loop and guarantees the pairing lifecycle follows a strict state
machine:

	manager, err := pairsdk.NewSessionManager(pairsdk.SessionOptions{
		Client:   client,
		Store:    pairsdk.NewFileStore(credPath, secret),
		Restorer: identityRestorer,
		OnStateChange: func(s pairsdk.State) {
			render(s)
		},
	})

	reg, err := manager.StartPairing(ctx, "", "Kitchen Display")
	// display reg.PairingCode; the manager polls in the background and
	// moves to AUTHENTICATED once the user approves.

# Restart Semantics

On process restart, call Restore before rendering any logged-out UI:

	state, err := manager.Restore(ctx)

Restore holds the RESTORING state until the identity provider reports a
definitive outcome. Stored credentials are cleared only on a definitive
negative - a slow or failing restoration is never treated as a logout.

# Error Handling

All service errors are typed *PairingError values and match predefined
sentinels with errors.Is:

	_, err := client.Exchange(ctx, deviceID, code)
	switch {
	case pairsdk.IsNotReady(err):
		// keep polling
	case pairsdk.IsTerminal(err):
		// restart pairing from register
	case pairsdk.IsRateLimited(err):
		// back off, then retry
	}
*/
package pairsdk
