// Package stub serves a canned stand-in for the concierge backend so the
// client can be developed and tested without the AI service. It speaks
// the same wire format as the real backend: the four endpoints plus the
// health document at the root.
package stub

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/hammamikhairi/concierge/internal/logger"
)

// Max upload accepted by the multipart endpoints.
const maxUpload = 16 << 20

// Tone parameters for the generated TTS audio.
const (
	toneSampleRate = 24000
	toneFreq       = 440.0
	msPerRune      = 12
	maxToneMs      = 4000
)

// Request is one recorded call, kept so tests and the stub's own log
// can show exactly what the client sent.
type Request struct {
	Method   string
	Path     string
	Fields   map[string]string
	FileSize int
	Lat      float64
	Lon      float64
	Text     string
}

// Server holds the canned responses and the request log.
type Server struct {
	Story string
	Guide string
	Menu  string

	log *logger.Logger

	mu       sync.Mutex
	requests []Request
}

// NewServer creates a stub backend with default canned texts.
func NewServer(log *logger.Logger) *Server {
	return &Server{
		Story: "Did you know this corner was a tram depot until 1962? Skip the cafe on the square and walk two blocks east.",
		Guide: "Look to your left: the grey facade is the old customs house. This spot is famous for its Sunday flea market.",
		Menu:  "For your table: two shared starters, one mild curry, one grilled fish, rice for everyone. Well within budget.",
		log:   log,
	}
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) record(r Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.mu.Unlock()
	s.log.Debug("%s %s fields=%v file=%dB", r.Method, r.Path, r.Fields, r.FileSize)
}

// NewRouter wires the stub handlers.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/analyze-photo", s.handleAnalyzePhoto).Methods(http.MethodPost)
	r.HandleFunc("/analyze-location", s.handleAnalyzeLocation).Methods(http.MethodPost)
	r.HandleFunc("/generate-menu", s.handleGenerateMenu).Methods(http.MethodPost)
	r.HandleFunc("/tts", s.handleTTS).Methods(http.MethodGet)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.record(Request{Method: r.Method, Path: r.URL.Path})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "concierge stub is online"})
}

func (s *Server) handleAnalyzePhoto(w http.ResponseWriter, r *http.Request) {
	size, fields, err := readForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.record(Request{Method: r.Method, Path: r.URL.Path, Fields: fields, FileSize: size})
	if size == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"story": s.Story})
}

func (s *Server) handleAnalyzeLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Latitude == nil || body.Longitude == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "latitude and longitude are required"})
		return
	}
	s.record(Request{Method: r.Method, Path: r.URL.Path, Lat: *body.Latitude, Lon: *body.Longitude})
	writeJSON(w, http.StatusOK, map[string]any{
		"location":   map[string]float64{"lat": *body.Latitude, "lon": *body.Longitude},
		"guide_text": s.Guide,
	})
}

func (s *Server) handleGenerateMenu(w http.ResponseWriter, r *http.Request) {
	size, fields, err := readForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.record(Request{Method: r.Method, Path: r.URL.Path, Fields: fields, FileSize: size})
	for _, k := range []string{"people", "budget", "taste"} {
		if fields[k] == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": k + " is required"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"menu": s.Menu})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	s.record(Request{Method: r.Method, Path: r.URL.Path, Text: text})
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	ms := len([]rune(text)) * msPerRune
	if ms > maxToneMs {
		ms = maxToneMs
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(ToneWAV(ms))
}

// readForm parses a multipart body and returns the uploaded file size and
// the text fields.
func readForm(r *http.Request) (int, map[string]string, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return 0, nil, fmt.Errorf("parse multipart: %w", err)
	}
	fields := make(map[string]string)
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	f, _, err := r.FormFile("file")
	if err != nil {
		return 0, fields, nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return 0, nil, fmt.Errorf("read file: %w", err)
	}
	return len(data), fields, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ToneWAV renders a 16-bit mono 24kHz sine tone of the given length as a
// RIFF/WAVE file.
func ToneWAV(ms int) []byte {
	n := toneSampleRate * ms / 1000
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(2*math.Pi*toneFreq*float64(i)/toneSampleRate) * 0.2 * math.MaxInt16)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&b, binary.LittleEndian, uint32(toneSampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(toneSampleRate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}
