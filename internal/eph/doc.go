// internal/eph/doc.go

// Package eph speaks the serial protocol of PhotoPC-class digital cameras:
// packet framing with an additive checksum, the init/signature handshake with
// speed negotiation, and the five register commands with ACK/NAK retry.
package eph
