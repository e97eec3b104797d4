package logger

// Standard field keys for structured logging.
//
// Keys are shared across session, codec, and adapter code so that log
// aggregation can query by field regardless of which layer emitted a line.
const (
	// Connection / session identity
	KeyConnID    = "conn_id"    // Connection UUID assigned at accept
	KeySessionID = "session_id" // Session UUID
	KeyTxnID     = "txn_id"     // Transaction identifier
	KeyLocalAddr = "local_addr" // Normalized local address
	KeyPeerAddr  = "peer_addr"  // Normalized peer address

	// Protocol
	KeyProtocol  = "protocol"  // Wire protocol (http/1.1, h2)
	KeyDirection = "direction" // Transport direction (downstream, upstream)

	// Flow control
	KeyBytes        = "bytes"         // Byte count for the logged operation
	KeyPendingBytes = "pending_bytes" // Buffered ingress bytes after the operation
	KeyLimit        = "limit"         // Ingress buffer limit

	// Byte events
	KeyByteEvents = "byte_events" // Number of byte events fired
	KeyOffset     = "offset"      // Egress byte offset

	// Errors
	KeyError     = "error"      // Error value
	KeyErrorCode = "error_code" // Normalized HTTP error code

	// Server
	KeyAddr        = "addr"        // Listen address
	KeyConnections = "connections" // Active connection count
	KeyDuration    = "duration"    // Elapsed time
)
