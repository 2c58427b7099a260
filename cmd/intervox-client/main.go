// Command intervox-client drives the pipeline endpoint headlessly: it
// reads a WAV file (or generates a test tone) and posts it as one
// interview turn, either directly or through the VAD session controller
// with -vad. With -events it also tails the server's live event feed.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"

	"github.com/intervox-ai/intervox/pkg/audio"
	"github.com/intervox-ai/intervox/pkg/interview"
	"github.com/intervox-ai/intervox/pkg/pipeline"
	"github.com/intervox-ai/intervox/pkg/session"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Server base URL")
	wavPath := flag.String("wav", "", "WAV file to submit (omit to send a generated tone)")
	questions := flag.String("questions", "Tell me about yourself.", "Comma-separated interview questions")
	interviewType := flag.String("type", "mixed", "Interview type: technical, behavioral or mixed")
	useVAD := flag.Bool("vad", false, "Feed the clip through the recording controller instead of posting it directly")
	tailEvents := flag.Bool("events", false, "Tail /ws/events while the request runs")
	flag.Parse()

	if *tailEvents {
		go tail(*server)
	}

	clip, format, err := loadClip(*wavPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := &interview.Config{
		Type:      interview.Type(*interviewType),
		Questions: strings.Split(*questions, ","),
	}

	var resp *pipeline.Response
	if *useVAD {
		resp, err = runSession(*server, clip, cfg)
	} else {
		resp, err = post(*server, &pipeline.Request{
			Action:          pipeline.ActionPipeline,
			Audio:           audio.EncodeBase64(clip),
			Format:          format,
			InterviewConfig: cfg,
		})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if !resp.Success {
		fmt.Printf("turn failed at %s: %s (%s)\n", resp.Step, resp.Error, resp.Code)
		if resp.RetryAfter > 0 {
			fmt.Printf("retry after %.0fs\n", resp.RetryAfter)
		}
		os.Exit(1)
	}

	fmt.Printf("you said:   %s\n", resp.Transcript)
	fmt.Printf("interviewer: %s\n", resp.Response)
	if resp.NextQuestion != "" {
		fmt.Printf("next question: %s\n", resp.NextQuestion)
	}
	if resp.IsComplete {
		fmt.Println("interview complete")
	}
	if replyAudio, err := audio.DecodeBase64(resp.Audio); err == nil {
		fmt.Printf("reply audio: %d bytes (%s)\n", len(replyAudio), resp.Format)
	}

	if *tailEvents {
		// Give the feed a moment to deliver the trailing events.
		time.Sleep(500 * time.Millisecond)
	}
}

// stepClock is advanced one frame at a time, so a file plays through the
// controller instantly instead of in real time.
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time          { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// runSession replays the clip through the VAD controller frame by frame,
// as a microphone would deliver it. The controller decides where the
// utterance ends and submits the re-encoded clip to the server.
func runSession(server string, clip []byte, cfg *interview.Config) (*pipeline.Response, error) {
	samples, sampleRate, err := decodeWAV(clip)
	if err != nil {
		return nil, err
	}

	clk := &stepClock{t: time.Now()}
	var result *pipeline.Response

	ctrl := session.New(session.Config{
		SampleRate: sampleRate,
		Clock:      clk,
		Submit: func(ctx context.Context, wavClip []byte) (*pipeline.Response, error) {
			return post(server, &pipeline.Request{
				Action:          pipeline.ActionPipeline,
				Audio:           audio.EncodeBase64(wavClip),
				Format:          "wav",
				InterviewConfig: cfg,
			})
		},
		OnResult: func(r *pipeline.Response) { result = r },
		OnStateChange: func(from, to session.State) {
			fmt.Printf("session: %s -> %s\n", from, to)
		},
	})

	ctrl.Start()
	defer ctrl.Stop()

	ctx := context.Background()
	frameSize := sampleRate / 100 // 10ms frames
	step := 10 * time.Millisecond

	for off := 0; off < len(samples); off += frameSize {
		end := off + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		ctrl.ProcessFrame(ctx, samples[off:end])
		clk.advance(step)
	}

	// Trailing quiet so the silence timeout fires and the clip finalizes.
	quiet := make([]float32, frameSize)
	for i := 0; i < 250 && result == nil; i++ {
		ctrl.ProcessFrame(ctx, quiet)
		clk.advance(step)
	}

	if result == nil {
		return nil, fmt.Errorf("no speech detected in %s of audio",
			(time.Duration(len(samples)/sampleRate) * time.Second).String())
	}
	return result, nil
}

// decodeWAV extracts normalized mono samples and the sample rate.
func decodeWAV(clip []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(clip))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil || buf == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("decode WAV: %v", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return samples, int(dec.SampleRate), nil
}

// loadClip reads the WAV file, or synthesizes one second of 440Hz tone so
// the pipeline can be exercised without a recording.
func loadClip(path string) ([]byte, string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}
		return data, "wav", nil
	}

	const sampleRate = 16000
	samples := make([]float32, sampleRate)
	for i := range samples {
		samples[i] = 0.3 * float32(math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}
	clip := audio.EncodePCM16WAV(audio.Float32ToPCM16(samples), sampleRate, 1)
	return clip, "wav", nil
}

func post(server string, req *pipeline.Request) (*pipeline.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpResp, err := http.Post(server+"/api/voice/pipeline", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post pipeline: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var resp pipeline.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode response (%d): %w", httpResp.StatusCode, err)
	}
	return &resp, nil
}

// tail prints events from /ws/events until the process exits.
func tail(server string) {
	wsURL := strings.Replace(server, "http", "ws", 1) + "/ws/events"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "event feed unavailable: %v\n", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		fmt.Printf("event: %s\n", data)
	}
}
