// Command satellite-demo wires the player core to a real PortAudio output
// device and a minimal in-process websocket transport standing in for the
// satellite's actual network collaborator (out of scope for this module).
// It exists to exercise internal/padevice and gorilla/websocket end to end,
// the way the teacher's cmd wiring exercises its own transport and audio
// engine from main.go.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/gorilla/websocket"

	"github.com/OHF-Voice/linux-voice-assistant/internal/padevice"
	"github.com/OHF-Voice/linux-voice-assistant/player"
)

const (
	demoSampleRate = 48000
	demoChannels   = 1
	demoToneHz     = 440.0
	demoAddr       = "127.0.0.1:0"
)

func main() {
	deviceIndex := flag.Int("device", -1, "output device index (-1 for default)")
	volume := flag.Int("volume", 100, "playback volume 0-100")
	flag.Parse()

	if err := portaudio.Initialize(); err != nil {
		log.Fatalf("[demo] portaudio init: %v", err)
	}
	defer portaudio.Terminate()

	devices, err := padevice.ListOutputDevices()
	if err != nil {
		log.Fatalf("[demo] list devices: %v", err)
	}
	for _, d := range devices {
		log.Printf("[demo] output device %d: %s", d.Index, d.Name)
	}

	var idx *int
	if *deviceIndex >= 0 {
		idx = deviceIndex
	}

	startedAt := time.Now()
	loopNow := func() int64 { return time.Since(startedAt).Microseconds() }
	// The real satellite derives serverToClient/clientToServer from a clock
	// handshake (out of scope here); the demo assumes clocks already agree.
	identity := func(us int64) int64 { return us }

	p := player.New(loopNow, identity, identity, nil, padevice.New(idx))
	if err := p.SetFormat(demoSampleRate, demoChannels); err != nil {
		log.Fatalf("[demo] set format: %v", err)
	}
	p.SetVolume(*volume, false)

	srv, addr := startFakeServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runMetrics(ctx, p, 2*time.Second)

	log.Printf("[demo] connecting to fake server at %s", addr)
	if err := streamFromFakeServer(ctx, addr, p, startedAt); err != nil {
		log.Fatalf("[demo] stream: %v", err)
	}
}

// startFakeServer runs a tiny websocket endpoint that emits 20ms sine-wave
// PCM chunks stamped with server-clock microseconds, standing in for the
// satellite's real audio source.
func startFakeServer() (*http.Server, string) {
	mux := http.NewServeMux()
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[demo-server] upgrade: %v", err)
			return
		}
		defer conn.Close()

		const frameMs = 20
		framesPerChunk := demoSampleRate * frameMs / 1000
		start := time.Now()
		var serverTsUs int64
		var phase float64

		ticker := time.NewTicker(frameMs * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			chunk := make([]byte, framesPerChunk*demoChannels*2)
			for f := 0; f < framesPerChunk; f++ {
				sample := int16(8000 * math.Sin(phase))
				phase += 2 * math.Pi * demoToneHz / demoSampleRate
				off := f * demoChannels * 2
				chunk[off] = byte(uint16(sample))
				chunk[off+1] = byte(uint16(sample) >> 8)
			}

			header := make([]byte, 8)
			putUint64(header, uint64(serverTsUs))
			if err := conn.WriteMessage(websocket.BinaryMessage, append(header, chunk...)); err != nil {
				return
			}
			serverTsUs += int64(frameMs) * 1000
			if time.Since(start) > 30*time.Second {
				return
			}
		}
	})

	srv := &http.Server{Addr: demoAddr, Handler: mux}
	ln, err := listen(demoAddr)
	if err != nil {
		log.Fatalf("[demo-server] listen: %v", err)
	}
	go srv.Serve(ln)
	return srv, "ws://" + ln.Addr().String() + "/stream"
}

func listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func streamFromFakeServer(ctx context.Context, addr string, p *player.Player, startedAt time.Time) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if len(msg) < 8 {
			continue
		}
		serverTsUs := int64(getUint64(msg[:8]))
		p.Submit(serverTsUs, msg[8:])
	}
}

func runMetrics(ctx context.Context, p *player.Player, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := p.Metrics()
			log.Printf("[demo-metrics] state=%v queued=%dus offset=%.0fus insertN=%d dropN=%d",
				m.State, m.QueuedDurationUs, m.FilteredOffsetUs, m.InsertEveryNFrame, m.DropEveryNFrame)
		}
	}
}
