// internal/eph/commands_test.go
package eph_test

import (
	"bytes"
	"errors"
	"testing"

	"camera-service/internal/eph"
	"camera-service/internal/eph/simulator"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i>>8)
	}
	return b
}

func TestSetIntGetIntRoundTrip(t *testing.T) {
	cam := simulator.New()
	c, _ := openConn(t, cam)
	const reg = 33
	for _, v := range []uint32{0, 1, 0xffffffff, 0x7fffffff, 0x12345678} {
		if err := c.SetInt(reg, v); err != nil {
			t.Fatalf("SetInt(%#x): %v", v, err)
		}
		got, err := c.GetInt(reg)
		if err != nil {
			t.Fatalf("GetInt after SetInt(%#x): %v", v, err)
		}
		if got != v {
			t.Errorf("GetInt = %#x, want %#x", got, v)
		}
		if int32(got) != int32(v) {
			t.Errorf("signed view %d, want %d", int32(got), int32(v))
		}
	}
}

func TestSetIntRetriesOnNAK(t *testing.T) {
	cam := simulator.New()
	c, _ := openConn(t, cam)
	cam.NAKCommands(2)
	if err := c.SetInt(20, 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if got := cam.Stats().Commands; got != 3 {
		t.Errorf("commands = %d, want 3", got)
	}
	if cam.Register(20) != 7 {
		t.Errorf("register = %d, want 7", cam.Register(20))
	}
}

func TestSetIntExcessiveRetries(t *testing.T) {
	cam := simulator.New()
	c, rec := openConn(t, cam)
	cam.IgnoreCommands(eph.MaxRetries)
	err := c.SetInt(20, 7)
	if !errors.Is(err, eph.ErrExcessiveRetries) {
		t.Fatalf("err = %v, want ExcessiveRetries", err)
	}
	if !errors.Is(err, eph.ErrTimeout) {
		t.Errorf("err = %v does not carry the last timeout", err)
	}
	if got := cam.Stats().Commands; got != eph.MaxRetries {
		t.Errorf("commands = %d, want %d", got, eph.MaxRetries)
	}
	if rec.count(eph.CodeTimeout) != eph.MaxRetries || rec.count(eph.CodeExcessiveRetries) != 1 {
		t.Errorf("reported codes %v", rec.codes)
	}
}

func TestGetIntRetries(t *testing.T) {
	t.Run("silent device gets the command again", func(t *testing.T) {
		cam := simulator.New()
		c, _ := openConn(t, cam)
		cam.IgnoreCommands(1)
		v, err := c.GetInt(simulator.RegProbe)
		if err != nil || v == 0 {
			t.Fatalf("GetInt = %d, %v", v, err)
		}
		if got := cam.Stats().Commands; got != 2 {
			t.Errorf("commands = %d, want 2", got)
		}
	})
	t.Run("corrupt answer is NAKed", func(t *testing.T) {
		cam := simulator.New()
		c, _ := openConn(t, cam)
		cam.Corrupt(0)
		if _, err := c.GetInt(simulator.RegProbe); err != nil {
			t.Fatalf("GetInt: %v", err)
		}
		st := cam.Stats()
		if st.NAKs != 1 || st.Commands != 1 {
			t.Errorf("naks = %d commands = %d, want 1 and 1", st.NAKs, st.Commands)
		}
	})
}

func TestAction(t *testing.T) {
	cam := simulator.New()
	c, _ := openConn(t, cam)
	if err := c.Action(simulator.ActionSnapshot, []byte{0}); err != nil {
		t.Fatalf("Action: %v", err)
	}
	if cam.ImageCount() != 1 {
		t.Errorf("images = %d, want 1", cam.ImageCount())
	}

	err := c.Action(simulator.ActionSnapshot, make([]byte, eph.MaxPacketPayload))
	if !errors.Is(err, eph.ErrPayloadTooLong) {
		t.Errorf("oversized action err = %v", err)
	}
}

func TestActionRetriesOnNAK(t *testing.T) {
	cam := simulator.New()
	c, _ := openConn(t, cam)
	cam.NAKCommands(1)
	if err := c.Action(simulator.ActionSnapshot, nil); err != nil {
		t.Fatalf("Action: %v", err)
	}
	if cam.ImageCount() != 1 {
		t.Errorf("action ran %d times, want 1", cam.ImageCount())
	}
}

func TestGetVarSizes(t *testing.T) {
	for _, n := range []int{0, 1, 2047, 2048, 4097, 3 * eph.MaxPacketPayload} {
		cam := simulator.New()
		data := pattern(n)
		cam.SetVar(50, data)
		c, rec := openConn(t, cam)

		got, err := c.GetVar(50, nil)
		if err != nil {
			t.Fatalf("len %d: GetVar: %v", n, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("len %d: data mismatch (got %d bytes)", n, len(got))
		}
		wantPackets := max(1, (n+eph.MaxPacketPayload-1)/eph.MaxPacketPayload)
		if got := cam.Stats().DataPackets; got != wantPackets {
			t.Errorf("len %d: packets = %d, want %d", n, got, wantPackets)
		}
		if n > 0 && rec.progress[len(rec.progress)-1] != int64(n) {
			t.Errorf("len %d: final progress %v", n, rec.progress)
		}
	}
}

func TestGetVarAppends(t *testing.T) {
	cam := simulator.New()
	cam.SetVar(50, []byte("world"))
	c, _ := openConn(t, cam)
	got, err := c.GetVar(50, []byte("hello "))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestGetVarLargeDeviceChunks(t *testing.T) {
	cam := simulator.New()
	cam.SetChunkSize(eph.BlockSize)
	data := pattern(10000)
	cam.SetVar(50, data)
	c, _ := openConn(t, cam)
	got, err := c.GetVar(50, nil)
	if err != nil {
		t.Fatalf("GetVar: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("data mismatch")
	}
}

func TestGetVarBufferLimit(t *testing.T) {
	cam := simulator.New()
	cam.SetVar(50, pattern(3*eph.BlockSize))
	c, _ := openConn(t, cam, eph.WithMaxBuffer(2*eph.BlockSize))
	if _, err := c.GetVar(50, nil); !errors.Is(err, eph.ErrOutOfMemory) {
		t.Errorf("err = %v, want OutOfMemory", err)
	}
}

func TestSetVarSizes(t *testing.T) {
	for _, n := range []int{0, 1, 2047, 2048, 4097} {
		cam := simulator.New()
		c, rec := openConn(t, cam)
		data := pattern(n)
		if err := c.SetVar(51, data); err != nil {
			t.Fatalf("len %d: SetVar: %v", n, err)
		}
		if got := cam.Var(51); !bytes.Equal(got, data) {
			t.Fatalf("len %d: camera holds %d bytes", n, len(got))
		}
		wantPackets := 1
		if rest := n - (eph.MaxPacketPayload - 2); rest > 0 {
			wantPackets += (rest + eph.MaxPacketPayload - 1) / eph.MaxPacketPayload
		}
		if got := cam.Stats().HostPackets; got != wantPackets {
			t.Errorf("len %d: packets = %d, want %d", n, got, wantPackets)
		}
		if len(rec.progress) != wantPackets || rec.progress[len(rec.progress)-1] != int64(n) {
			t.Errorf("len %d: progress %v", n, rec.progress)
		}
	}
}

func TestStreamVarDropAckDeliversOnce(t *testing.T) {
	data := pattern(5 * eph.MaxPacketPayload)
	cam := simulator.New()
	cam.SetVar(50, data)

	var stored bytes.Buffer
	chunks := 0
	c, rec := openConn(t, cam, eph.WithStoreFunc(func(p []byte) error {
		chunks++
		stored.Write(p)
		return nil
	}))
	cam.DropACK(2)

	n, err := c.StreamVar(50)
	if err != nil {
		t.Fatalf("StreamVar: %v", err)
	}
	if n != int64(len(data)) || !bytes.Equal(stored.Bytes(), data) {
		t.Fatalf("stored %d bytes, want %d", stored.Len(), len(data))
	}
	if chunks != 5 {
		t.Errorf("store calls = %d, want 5", chunks)
	}
	st := cam.Stats()
	if st.DroppedACKs != 1 || st.Resent != 1 {
		t.Errorf("dropped = %d resent = %d", st.DroppedACKs, st.Resent)
	}
	if len(rec.progress) != 5 {
		t.Errorf("progress calls = %d, want 5", len(rec.progress))
	}
}

func TestGetVarCorruptPacketNAKedOnce(t *testing.T) {
	data := pattern(3 * eph.MaxPacketPayload)
	cam := simulator.New()
	cam.SetVar(50, data)
	c, rec := openConn(t, cam)
	cam.Corrupt(1)

	got, err := c.GetVar(50, nil)
	if err != nil {
		t.Fatalf("GetVar: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("data mismatch")
	}
	st := cam.Stats()
	if st.NAKs != 1 || st.Resent != 1 {
		t.Errorf("naks = %d resent = %d, want 1 and 1", st.NAKs, st.Resent)
	}
	if rec.count(eph.CodeChecksumMismatch) != 1 {
		t.Errorf("reported codes %v", rec.codes)
	}
}

func TestGetVarRetryBudgetIsPerPacket(t *testing.T) {
	data := pattern(4 * eph.MaxPacketPayload)
	cam := simulator.New()
	cam.SetVar(50, data)
	c, _ := openConn(t, cam)
	for seq := byte(0); seq < 4; seq++ {
		for i := 0; i < eph.MaxRetries-1; i++ {
			cam.Corrupt(seq)
		}
	}
	got, err := c.GetVar(50, nil)
	if err != nil {
		t.Fatalf("GetVar: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("data mismatch")
	}
}

func TestGetVarGivesUp(t *testing.T) {
	cam := simulator.New()
	cam.SetVar(50, pattern(100))
	c, _ := openConn(t, cam)
	for i := 0; i < eph.MaxRetries; i++ {
		cam.Corrupt(0)
	}
	if _, err := c.GetVar(50, nil); !errors.Is(err, eph.ErrExcessiveRetries) {
		t.Errorf("err = %v, want ExcessiveRetries", err)
	}
}

func TestGetVarResendsCommandOnFirstNAK(t *testing.T) {
	cam := simulator.New()
	cam.SetVar(50, pattern(10))
	c, _ := openConn(t, cam)
	cam.NAKCommands(1)
	if _, err := c.GetVar(50, nil); err != nil {
		t.Fatalf("GetVar: %v", err)
	}
	st := cam.Stats()
	if st.Commands != 2 {
		t.Errorf("commands = %d, want 2", st.Commands)
	}
	if st.NAKs != 1 {
		t.Errorf("host NAKs = %d, want 1 before the resend", st.NAKs)
	}
}

func TestStreamVarWithoutStore(t *testing.T) {
	c, rec := openConn(t, simulator.New())
	if _, err := c.StreamVar(50); !errors.Is(err, eph.ErrInvalidArguments) {
		t.Errorf("err = %v, want InvalidArguments", err)
	}
	if rec.count(eph.CodeInvalidArguments) != 1 {
		t.Errorf("reported codes %v", rec.codes)
	}
}

func TestStreamVarStoreFailureAborts(t *testing.T) {
	cam := simulator.New()
	cam.SetVar(50, pattern(3*eph.MaxPacketPayload))
	boom := errors.New("disk full")
	calls := 0
	c, _ := openConn(t, cam, eph.WithStoreFunc(func([]byte) error {
		calls++
		return boom
	}))
	_, err := c.StreamVar(50)
	if !errors.Is(err, boom) || !errors.Is(err, eph.ErrIO) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("store calls = %d, want 1", calls)
	}
}

func TestGetVarImageUsesLongFirstTimeout(t *testing.T) {
	cam := simulator.New(simulator.Image{Data: pattern(5000)})
	c, _ := openConn(t, cam)
	if err := c.SetInt(simulator.RegFrame, 1); err != nil {
		t.Fatal(err)
	}
	before := len(cam.Timeouts())
	if _, err := c.GetVar(simulator.RegImage, nil); err != nil {
		t.Fatal(err)
	}
	timeouts := cam.Timeouts()[before:]
	if len(timeouts) == 0 || timeouts[0] != eph.BigDataTimeout {
		t.Fatalf("first read timeout = %v, want %v", timeouts, eph.BigDataTimeout)
	}
	long := 0
	for _, d := range timeouts {
		if d == eph.BigDataTimeout {
			long++
		}
	}
	if long != 1 {
		t.Errorf("long timeouts = %d, want 1", long)
	}
}
