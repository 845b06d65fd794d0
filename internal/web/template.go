package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/slide-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"pads": func(pressed []bool) string {
		b := make([]byte, len(pressed))
		for i, p := range pressed {
			if p {
				b[i] = '#'
			} else {
				b[i] = '.'
			}
		}
		return string(b)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Slide Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.idle { color: #888; }
.active { color: green; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Slide Sensor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Engine</h2>
<table>
<tr><th>Phase</th><td id="phase" class="{{if eq .Phase.String "IDLE"}}idle{{else}}active{{end}}">{{.Phase}}</td></tr>
<tr><th>Tick</th><td>{{.Tick}}</td></tr>
<tr><th>Pads</th><td>{{pads .Pressed}}</td></tr>
<tr><th>Last event</th><td id="last-event">{{if .LastEvent}}{{.LastEvent.Type}}{{if .LastEvent.Reason}} ({{.LastEvent.Reason}}){{end}} at tick {{.LastEvent.Tick}}{{else}}none{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Slide forward</th><td id="count-forward">{{.Counts.Forward}}</td></tr>
<tr><th>Slide backward</th><td id="count-backward">{{.Counts.Backward}}</td></tr>
<tr><th>Rejected</th><td id="count-rejected">{{.Counts.Rejected}}</td></tr>
{{range $reason, $n := .Counts.Rejections}}<tr><th>&nbsp;&nbsp;{{$reason}}</th><td>{{$n}}</td></tr>
{{end}}<tr><th>Keys</th><td>{{.Counts.Keys}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Redis</th><td>{{if .Config.Redis}}{{.Config.Redis}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Channels</th><td>{{.Config.Channels}} (pins {{range $i, $p := .Config.Pins}}{{if $i}}, {{end}}{{$p}}{{end}})</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var last = document.getElementById("last-event");
  var counts = {
    SLIDE_FORWARD: document.getElementById("count-forward"),
    SLIDE_BACKWARD: document.getElementById("count-backward"),
    REJECTED: document.getElementById("count-rejected")
  };

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(m) {
      try {
        var msg = JSON.parse(m.data);
        if (msg.type !== "event" || !msg.data.slide) return;
        var ev = msg.data.slide;
        last.textContent = ev.event + (ev.reason ? " (" + ev.reason + ")" : "") + " at tick " + ev.tick;
        var el = counts[ev.event];
        if (el) el.textContent = String(Number(el.textContent) + 1);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
