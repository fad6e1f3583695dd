package channel

import (
	"context"
	"testing"
	"time"

	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/config"
	"github.com/doismellburning/samoyed/internal/dispatch"
	"github.com/doismellburning/samoyed/internal/fec/fx25"
	"github.com/doismellburning/samoyed/internal/fec/il2p"
	"github.com/doismellburning/samoyed/internal/hdlc"
	"github.com/doismellburning/samoyed/internal/txqueue"
	"github.com/stretchr/testify/require"
)

func submitBytes(ch *Channel, sub int, data []byte) {
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			ch.SubmitBit(sub, (b>>uint(i))&1 == 1)
		}
	}
}

func TestNewBuildsConfiguredSubchanCount(t *testing.T) {
	hub := dispatch.New(nil)
	cfg := config.ChannelConfig{Name: "vhf", Subchans: 3}
	ch := New(0, cfg, hub, nil)
	require.Len(t, ch.receivers, 3)
}

func TestEnqueueAndRunExitsAfterCancel(t *testing.T) {
	hub := dispatch.New(nil)
	cfg := config.ChannelConfig{Name: "vhf", Subchans: 1, Persistence: 1}
	ch := New(0, cfg, hub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ch.Run(ctx)
		close(done)
	}()

	ch.Enqueue(txqueue.Entry{Payload: []byte("hello"), Priority: txqueue.HI})

	time.Sleep(20 * time.Millisecond)
	cancel()
	ch.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}

func TestDCDAssertsWhileAnySubchanIsCollecting(t *testing.T) {
	hub := dispatch.New(nil)
	cfg := config.ChannelConfig{Name: "vhf", Subchans: 2}
	ch := New(0, cfg, hub, nil)
	require.False(t, ch.DCD(), "no subchan has seen a flag yet")

	// 0x7E (HDLC flag), a palindromic byte so bit order doesn't matter:
	// opens a frame on subchan 1 only.
	flag := []bool{false, true, true, true, true, true, true, false}
	for _, b := range flag {
		ch.SubmitBit(1, b)
	}

	require.True(t, ch.DCD(), "one busy subchan is enough to assert channel DCD")
}

func TestSubmitBitIgnoresOutOfRangeSubchan(t *testing.T) {
	hub := dispatch.New(nil)
	cfg := config.ChannelConfig{Name: "vhf", Subchans: 1}
	ch := New(0, cfg, hub, nil)
	ch.SubmitBit(5, true) // should not panic
}

func TestSubmitBitDecodesFX25ThroughArbitratorToHub(t *testing.T) {
	hub := dispatch.New(nil)
	handle := hub.RegisterClient("test-fx25", true)

	cfg := config.ChannelConfig{Name: "vhf", Subchans: 1}
	ch := New(0, cfg, hub, nil)

	dest, err := ax25.ParseAddress("APRS")
	require.NoError(t, err)
	src, err := ax25.ParseAddress("N0CALL-1")
	require.NoError(t, err)
	tag := fx25.Tags[3] // N=80, K=64

	// FX.25 has no length field of its own: a decoded block is exactly
	// k bytes, so an Info shorter than that would decode with trailing
	// zero padding still attached. Size Info so addresses+control+pid+
	// info+FCS comes out to exactly k bytes and Encode needs no padding.
	const headerLen = 2*7 + 1 + 1 // two addresses + control + pid
	const fcsLen = 2
	info := make([]byte, tag.K-headerLen-fcsLen)
	for i := range info {
		info[i] = byte('a' + i%26)
	}

	p := &ax25.Packet{
		Addrs:   []ax25.Address{dest, src},
		Control: 0x03,
		HasPID:  true,
		PID:     0xF0,
		Info:    info,
	}
	framed := hdlc.AppendFCS(p.ToBytes())
	require.Len(t, framed, tag.K)

	codecs := fx25.NewCodecs()
	wire := fx25.Encode(tag, framed, codecs)

	submitBytes(ch, 0, wire)

	select {
	case d := <-handle.Frames:
		require.Equal(t, ax25.FECFX25, d.Candidate.FECType)
		require.Equal(t, info, d.Packet.Info)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("FX.25 candidate never reached the dispatch hub")
	}
}

func TestSubmitBitDecodesIL2PThroughArbitratorToHub(t *testing.T) {
	hub := dispatch.New(nil)
	handle := hub.RegisterClient("test-il2p", true)

	cfg := config.ChannelConfig{Name: "vhf", Subchans: 1}
	ch := New(0, cfg, hub, nil)

	dest, err := ax25.ParseAddress("APRS")
	require.NoError(t, err)
	src, err := ax25.ParseAddress("N0CALL-5")
	require.NoError(t, err)
	p := &ax25.Packet{
		Addrs:   []ax25.Address{dest, src},
		Control: 0x03,
		HasPID:  true,
		PID:     0xF0,
		Info:    []byte("il2p wiring check"),
	}
	wire, err := il2p.Encode(p)
	require.NoError(t, err)

	submitBytes(ch, 0, wire)

	select {
	case d := <-handle.Frames:
		require.Equal(t, ax25.FECIL2P, d.Candidate.FECType)
		require.Equal(t, "il2p wiring check", string(d.Packet.Info))
	case <-time.After(500 * time.Millisecond):
		t.Fatal("IL2P candidate never reached the dispatch hub")
	}
}
