// Package ui provides the browser dashboard served next to the Control Channel.
package ui

import (
	"html/template"
	"log"
	"net/http"
	"os/exec"
	"runtime"

	"keymouse/internal/config"
)

// Handler serves the dashboard page at "/".
type Handler struct {
	configMgr *config.Manager
}

// NewHandler creates the dashboard handler
func NewHandler(cfgMgr *config.Manager) *Handler {
	return &Handler{configMgr: cfgMgr}
}

type pageData struct {
	Hotkeys  config.HotkeyConfig
	Playback config.PlaybackConfig
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := h.configMgr.Get()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, pageData{Hotkeys: cfg.Hotkeys, Playback: cfg.Playback}); err != nil {
		log.Printf("UI: Failed to render dashboard: %v", err)
	}
}

// OpenBrowser opens url in the default browser
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

var tmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>keymouse</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: #e2e8f0;
            min-height: 100vh;
            padding: 2rem;
        }
        .container { max-width: 720px; margin: 0 auto; }
        h1 { font-size: 1.8rem; margin-bottom: 1.5rem; color: #a5b4fc; }
        .card {
            background: rgba(255,255,255,0.05);
            border: 1px solid rgba(255,255,255,0.1);
            border-radius: 16px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
        }
        .card h2 { font-size: 1.1rem; margin-bottom: 1rem; color: #a5b4fc; }
        #status { font-size: 1.2rem; margin-bottom: 1rem; }
        #status.recording { color: #f87171; }
        #status.playing { color: #fbbf24; }
        .grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 0.75rem; }
        .stat { background: rgba(255,255,255,0.03); border-radius: 8px; padding: 0.75rem; }
        .stat .label { font-size: 0.75rem; color: #94a3b8; }
        .stat .value { font-size: 1.2rem; }
        progress { width: 100%; margin-top: 1rem; }
        .row { display: flex; gap: 0.5rem; flex-wrap: wrap; margin-bottom: 0.75rem; align-items: center; }
        button {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            border: none; border-radius: 8px; color: white;
            padding: 0.5rem 1rem; cursor: pointer; font-size: 0.9rem;
        }
        button.danger { background: #b91c1c; }
        input, select {
            background: rgba(255,255,255,0.08); border: 1px solid rgba(255,255,255,0.15);
            color: #e2e8f0; border-radius: 6px; padding: 0.4rem 0.6rem;
        }
        #message { color: #94a3b8; min-height: 1.2rem; }
        #last { color: #94a3b8; margin-top: 0.75rem; font-family: monospace; }
    </style>
</head>
<body>
<div class="container">
    <h1>keymouse</h1>

    <div class="card">
        <div id="status">Connecting...</div>
        <div class="grid">
            <div class="stat"><div class="label">Events</div><div class="value" id="total">0</div></div>
            <div class="stat"><div class="label">Mouse</div><div class="value" id="mouse">0</div></div>
            <div class="stat"><div class="label">Keys</div><div class="value" id="keys">0</div></div>
            <div class="stat"><div class="label">Duration</div><div class="value" id="duration">00:00:00</div></div>
        </div>
        <progress id="progress" max="100" value="0"></progress>
        <div id="last">Last event: None</div>
    </div>

    <div class="card">
        <h2>Recording</h2>
        <div class="row">
            <select id="recordType">
                <option value="all">All</option>
                <option value="mouse">Mouse</option>
                <option value="keyboard">Keyboard</option>
            </select>
            <button onclick="send('start_recording', {type: el('recordType').value})">Start ({{.Hotkeys.StartRecording}})</button>
            <button class="danger" onclick="send('stop_recording')">Stop ({{.Hotkeys.StopRecording}})</button>
        </div>
    </div>

    <div class="card">
        <h2>Playback</h2>
        <div class="row">
            <label>Speed <input id="speed" type="number" step="0.1" min="0.1" value="{{.Playback.Speed}}" style="width:5rem"></label>
            <label>Passes <input id="count" type="number" min="1" value="{{.Playback.LoopCount}}" style="width:5rem"></label>
            <label><input id="loop" type="checkbox" {{if .Playback.LoopMode}}checked{{end}}> Loop</label>
        </div>
        <div class="row">
            <button onclick="play()">Play ({{.Hotkeys.StartPlayback}})</button>
            <button class="danger" onclick="send('stop_playback')">Abort ({{.Hotkeys.AbortPlayback}})</button>
        </div>
    </div>

    <div class="card">
        <h2>File</h2>
        <div class="row">
            <input id="filename" placeholder="recording.json">
            <button onclick="send('save_recording', {filename: el('filename').value})">Save</button>
            <button onclick="send('load_recording', {filename: el('filename').value})">Load</button>
        </div>
        <div id="message"></div>
    </div>
</div>

<script>
    let ws;
    const el = id => document.getElementById(id);

    function connect() {
        const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(proto + '//' + location.host + '/ws' + location.search);
        ws.onmessage = ev => handle(JSON.parse(ev.data));
        ws.onclose = () => {
            el('status').textContent = 'Disconnected, retrying...';
            setTimeout(connect, 2000);
        };
    }

    function send(type, payload) {
        if (ws && ws.readyState === WebSocket.OPEN) {
            ws.send(JSON.stringify({type: type, payload: payload || null}));
        }
    }

    function play() {
        send('start_playback', {
            speed: parseFloat(el('speed').value),
            loop_mode: el('loop').checked,
            loop_count: parseInt(el('count').value, 10)
        });
    }

    function handle(msg) {
        const p = msg.payload || {};
        switch (msg.type) {
        case 'stats_update':
            el('status').textContent = p.status;
            el('status').className = p.is_recording ? 'recording' : (p.is_playing ? 'playing' : '');
            el('total').textContent = p.total_events;
            el('mouse').textContent = p.mouse_events;
            el('keys').textContent = p.key_events;
            el('duration').textContent = p.duration;
            el('progress').value = p.progress;
            el('last').textContent = 'Last event: ' + p.last_event;
            break;
        case 'save_result':
        case 'load_result':
        case 'error':
            el('message').textContent = p.message;
            break;
        }
    }

    connect();
</script>
</body>
</html>
`))
