package tlsserver

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"rubyshd/internal/model"
)

func TestServeClassifiesAndInvokesHandler(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var gotPath string
	handler := func(ctx context.Context, req model.Request) *model.Response {
		gotPath = req.Path
		return model.NewResponse("text/plain", []byte("ok"))
	}

	s := &Server{Handler: handler, Logger: zerolog.Nop(), DefaultHostname: "ruby.sh"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hi HTTP/1.1\r\nHost: ruby.sh\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err, "reading response")
	require.Equal(t, "HTTP/1.1 200 OK\r\n", line)

	// give the goroutine a moment to set gotPath before we assert
	deadline := time.Now().Add(time.Second)
	for gotPath == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, "/hi", gotPath)
}
