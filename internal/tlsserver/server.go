// Package tlsserver is the shared TLS accept loop that serves both
// HTTPS/1.1 and Gemini from a single listening port, demultiplexing the two
// protocols from the first bytes of the decrypted stream.
package tlsserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rubyshd/internal/demux"
	"rubyshd/internal/model"
)

type connIDKey struct{}

// ConnectionID extracts the per-connection correlation ID a Handler can
// attach to its own logging, stamped onto ctx before Handler is invoked.
func ConnectionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(connIDKey{}).(string)
	return id, ok
}

// MaxRequestHeaderBytes bounds how much of a connection's head demux will
// buffer before giving up with model.KindRequestTooLarge.
const MaxRequestHeaderBytes = 8192

// HandshakeTimeout bounds how long the TLS handshake itself may take before
// the connection is abandoned.
const HandshakeTimeout = 10 * time.Second

// RequestTimeout bounds how long a connection may take, after the
// handshake completes, to produce a full request head.
const RequestTimeout = 30 * time.Second

// Handler processes one classified request and returns the Response to
// write back.
type Handler func(ctx context.Context, req model.Request) *model.Response

// Server is the dual-protocol TLS listener. It owns no HTTP- or
// Gemini-specific logic beyond demultiplexing; Handler carries out the rest
// of the pipeline.
type Server struct {
	// Addr is the TCP address to listen on, e.g. ":8443".
	Addr string

	// TLSConfig supplies the certificate chain and, when mutual TLS is
	// enabled, ClientCAs + tls.VerifyClientCertIfGiven: a client
	// certificate is requested but never required, while one that IS
	// presented must still verify against ClientCAs or the handshake
	// fails outright (C6's "requested, not required" invariant — this is
	// never downgraded to anonymous on a verification failure).
	TLSConfig *tls.Config

	// DefaultHostname is used by the HTTPS parser when a request carries
	// no Host header.
	DefaultHostname string

	Handler Handler

	Logger zerolog.Logger
}

// NewTLSConfig builds the tls.Config for mutual-TLS-requested-not-required
// mode when caCertPool is non-nil, or server-only TLS otherwise.
func NewTLSConfig(certs []tls.Certificate, caCertPool *x509.CertPool) *tls.Config {
	cfg := &tls.Config{
		Certificates: certs,
		MinVersion:   tls.VersionTLS12,
	}
	if caCertPool != nil {
		cfg.ClientCAs = caCertPool
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return cfg
}

// ListenAndServe listens on s.Addr and serves connections until the
// listener fails or the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := tls.Listen("tcp", s.Addr, s.TLSConfig)
	if err != nil {
		return model.NewError(model.KindInternalError, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until it errors or ctx is cancelled,
// handling each one in its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		rawConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return model.NewError(model.KindIoError, err)
		}
		go s.handleConn(ctx, rawConn)
	}
}

func (s *Server) handleConn(ctx context.Context, rawConn net.Conn) {
	defer rawConn.Close()

	connID := uuid.NewString()
	ctx = context.WithValue(ctx, connIDKey{}, connID)
	logger := s.Logger.With().Str("conn_id", connID).Logger()

	tlsConn, ok := rawConn.(*tls.Conn)
	if !ok {
		// listener already produces *tls.Conn via tls.Listen; this branch
		// only matters for tests that hand Serve a plain net.Listener.
		s.serveUnwrapped(ctx, rawConn, model.Anonymous())
		return
	}

	tlsConn.SetDeadline(time.Now().Add(HandshakeTimeout))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		logger.Warn().Err(err).Str("peer", rawConn.RemoteAddr().String()).Msg("tls handshake failed")
		return
	}

	identity := identityFromConnectionState(tlsConn.ConnectionState())
	logger.Debug().Str("peer", rawConn.RemoteAddr().String()).Str("identity", identity.String()).Msg("tls handshake complete")

	tlsConn.SetDeadline(time.Now().Add(RequestTimeout))
	s.serveUnwrapped(ctx, tlsConn, identity)
}

func (s *Server) serveUnwrapped(ctx context.Context, conn net.Conn, identity model.PeerIdentity) {
	r := bufio.NewReader(conn)

	head, err := demux.ReadRequestHead(r, MaxRequestHeaderBytes)
	if err != nil {
		s.writeErrorAndClose(conn, model.ProtocolHTTPS, err)
		return
	}

	req, err := demux.Classify(head, conn.RemoteAddr(), identity, s.DefaultHostname)
	if err != nil {
		s.writeErrorAndClose(conn, model.ProtocolHTTPS, err)
		return
	}

	resp := s.Handler(ctx, req)
	if err := WriteResponse(conn, req.Protocol, resp); err != nil {
		s.Logger.Warn().Err(err).Msg("failed writing response")
	}
}

// writeErrorAndClose renders a best-effort error response for requests that
// failed before classification could determine a protocol; it assumes HTTPS
// framing since that's the more common client by far.
func (s *Server) writeErrorAndClose(conn net.Conn, protocol model.Protocol, err error) {
	merr, ok := model.AsError(err)
	if !ok {
		merr = model.NewError(model.KindInternalError, err)
	}
	resp := model.NewStatusResponse(merr.Kind.Status())
	if werr := WriteResponse(conn, protocol, resp); werr != nil {
		s.Logger.Warn().Err(werr).Msg("failed writing error response")
	}
}

// identityFromConnectionState extracts the peer identity from a completed
// TLS handshake: anonymous if no client certificate was presented, or the
// leaf certificate's subject Common Name otherwise.
// VerifyClientCertIfGiven guarantees that by the time HandshakeContext
// returns successfully, any presented certificate already verified against
// ClientCAs, so this function never needs to re-check trust.
func identityFromConnectionState(state tls.ConnectionState) model.PeerIdentity {
	if len(state.PeerCertificates) == 0 {
		return model.Anonymous()
	}
	return model.AuthenticatedAs(state.PeerCertificates[0].Subject.CommonName)
}
