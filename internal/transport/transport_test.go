package transport

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
	"github.com/GabrielNunesIT/log2gelf/internal/testutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		protocol string
		wantName string
		wantErr  bool
	}{
		{protocol: config.ProtocolTCP, wantName: "tcp"},
		{protocol: config.ProtocolHTTP, wantName: "http"},
		{protocol: config.ProtocolStdout, wantName: "stdout"},
		{protocol: "udp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.protocol, func(t *testing.T) {
			tr, err := New(config.TransportConfig{Protocol: tt.protocol, Host: "h", Port: 1}, testutil.NewTestLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, tr.Name())
		})
	}
}

func TestStdoutTransport(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStdoutTransportWithWriter(&buf, testutil.NewTestLogger())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx))
	require.NoError(t, tr.Send(ctx, []byte(`{"a":1}`)))
	require.NoError(t, tr.Send(ctx, []byte(`{"b":2}`)))
	require.NoError(t, tr.Stop(ctx))

	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", buf.String())
	assert.Equal(t, "stdout", tr.Name())
}
