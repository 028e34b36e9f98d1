package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/blinky/internal/logic"
	"github.com/sweeney/blinky/internal/mqtt"
	"github.com/sweeney/blinky/internal/status"
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
	"ledState": func(s logic.State) string {
		return status.LEDState(s)
	},
	"hz": logic.FormatMilliHz,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Blinky</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Blinky{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>LED</h2>
<table>
<tr><th>State</th><td id="led-state" class="{{if eq (ledState .Pattern.State) "ON"}}on{{else if eq (ledState .Pattern.State) "OFF"}}off{{else}}unknown{{end}}">{{ledState .Pattern.State}}</td></tr>
<tr><th>Cycles</th><td id="led-cycles">{{.Pattern.Cycles}}{{if .Pattern.Count}} / {{.Pattern.Count}}{{end}}</td></tr>
<tr><th>Done</th><td>{{if .Pattern.Done}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Pattern</h2>
<table>
<tr><th>Name</th><td>{{if .Pattern.Name}}{{.Pattern.Name}}{{else}}custom{{end}}</td></tr>
<tr><th>On</th><td>{{.Pattern.OnMs}}ms</td></tr>
<tr><th>Off</th><td>{{.Pattern.OffMs}}ms</td></tr>
<tr><th>Period</th><td>{{.Pattern.PeriodMs}}ms</td></tr>
<tr><th>Duty cycle</th><td>{{.Pattern.DutyCyclePercent}}%</td></tr>
<tr><th>Frequency</th><td>{{hz .Pattern.FrequencyMilliHz}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Transitions</th><td>{{.Counts.Transitions}}</td></tr>
<tr><th>Output errors</th><td>{{.Counts.OutputErrors}}{{if .LastOutputError}} ({{.LastOutputError}}){{end}}</td></tr>
<tr><th>Reloads</th><td>{{.Counts.Reloads}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Output</th><td>{{.Config.Driver}}{{if .Config.Output}} ({{.Config.Output}}){{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
{{if .Config.ConfigPath}}<tr><th>Config</th><td>{{.Config.ConfigPath}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("led-state");
  var cyclesEl = document.getElementById("led-cycles");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.led) {
        stateEl.textContent = msg.led.state;
        stateEl.className = msg.led.state === "ON" ? "on" : "off";
        cyclesEl.textContent = msg.led.cycle;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Topic  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Topic:    mqtt.Topic,
	}
	indexTmpl.Execute(w, data)
}
