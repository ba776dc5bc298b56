package webui

import (
	"html/template"
	"time"
)

// Templates contains all HTML templates for the web UI
var Templates = template.Must(template.New("").Funcs(template.FuncMap{
	"levelClass": func(level string) string {
		switch level {
		case "error", "fatal", "panic":
			return "log-error"
		case "warn":
			return "log-warn"
		case "debug", "trace":
			return "log-debug"
		default:
			return "log-info"
		}
	},
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format("2006-01-02 15:04:05")
	},
}).Parse(`
{{define "base"}}
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="refresh" content="{{.RefreshSeconds}}">
    <title>scadawatch · {{.Organization}}</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --border-color: #30363d;
            --text-primary: #e6edf3;
            --text-secondary: #8b949e;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
            --accent-blue: #58a6ff;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
        }
        .container { max-width: 1400px; margin: 0 auto; padding: 2rem; }
        header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 2rem;
            padding-bottom: 1rem;
            border-bottom: 1px solid var(--border-color);
        }
        .status-badge {
            padding: 0.4rem 1rem;
            border: 1px solid var(--border-color);
            border-radius: 20px;
            font-size: 0.875rem;
        }
        .status-badge.ok { color: var(--accent-green); }
        .status-badge.down { color: var(--accent-red); }
        .stats { display: grid; grid-template-columns: repeat(4, 1fr); gap: 1rem; margin-bottom: 2rem; }
        .stat {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 1rem;
        }
        .stat-label { color: var(--text-secondary); font-size: 0.8rem; text-transform: uppercase; }
        .stat-value { font-size: 1.6rem; font-weight: 600; }
        section { margin-bottom: 2rem; }
        h2 { font-size: 1.1rem; margin-bottom: 0.75rem; color: var(--text-secondary); }
        table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
        th, td { text-align: left; padding: 0.5rem; border-bottom: 1px solid var(--border-color); }
        th { color: var(--text-secondary); font-weight: 500; }
        .treatment { display: inline-block; padding: 0.1rem 0.6rem; border-radius: 4px; color: #fff; }
        .empty { color: var(--text-secondary); font-style: italic; }
        .logs {
            font-family: ui-monospace, monospace;
            font-size: 0.8rem;
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 1rem;
            max-height: 400px;
            overflow-y: auto;
        }
        .log-error { color: var(--accent-red); }
        .log-warn { color: var(--accent-yellow); }
        .log-debug { color: var(--text-secondary); }
        .log-info { color: var(--accent-blue); }
        footer { color: var(--text-secondary); font-size: 0.8rem; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>scadawatch</h1>
        {{if .Healthy}}<span class="status-badge ok">Feed OK · {{.Organization}}</span>
        {{else}}<span class="status-badge down">Feed unavailable · {{.Organization}}</span>{{end}}
    </header>

    <div class="stats">
        <div class="stat"><div class="stat-label">Alarms</div><div class="stat-value">{{.AlarmCount}}</div></div>
        <div class="stat"><div class="stat-label">Out of range</div><div class="stat-value">{{.OutOfRangeCount}}</div></div>
        <div class="stat"><div class="stat-label">Firing alerts</div><div class="stat-value">{{.AlertCount}}</div></div>
        <div class="stat"><div class="stat-label">Last update</div><div class="stat-value">{{clock .LastUpdate}}</div></div>
    </div>

    {{if .LastError}}<section><h2>Last error</h2><p class="log-error">{{.LastError}}</p></section>{{end}}

    <section>
        <h2>Alarms</h2>
        {{if .Alarms}}
        <table>
            <tr><th>State</th><th>Description</th><th>Type</th><th>Zone</th><th>Value</th><th>Set point</th><th>Status</th><th>Updated</th></tr>
            {{range .Alarms}}
            <tr>
                <td><span class="treatment" style="background: {{.Treatment.Color}}">{{.Treatment.Icon}} {{.Treatment.Title}}</span></td>
                <td>{{.Description}}</td>
                <td>{{.Type}}</td>
                <td>{{.Zone}}</td>
                <td>{{.Value}} {{.Unit}}</td>
                <td>{{.SetPoint}}</td>
                <td>{{.Status}}</td>
                <td>{{clock .Timestamp}}</td>
            </tr>
            {{end}}
        </table>
        {{else}}<p class="empty">No alarms in the current feed</p>{{end}}
    </section>

    <section>
        <h2>Firing alerts</h2>
        {{if .Alerts}}
        <table>
            <tr><th>Severity</th><th>Alarm</th><th>Message</th><th>Since</th></tr>
            {{range .Alerts}}
            <tr><td>{{.Severity}}</td><td>{{.Description}}</td><td>{{.Message}}</td><td>{{clock .FiredAt}}</td></tr>
            {{end}}
        </table>
        {{else}}<p class="empty">No firing alerts</p>{{end}}
    </section>

    <section>
        <h2>Recent logs</h2>
        <div class="logs">
            {{range .Logs}}<div class="{{levelClass .Level}}">{{clock .Timestamp}} [{{.Level}}] {{if .Component}}{{.Component}}: {{end}}{{.Message}}</div>
            {{else}}<div class="empty">No log entries</div>{{end}}
        </div>
    </section>

    <footer>
        {{.Version}} ({{.Commit}}) · up {{.Uptime}} · polling every {{.Config.AlarmInterval}} · {{.Config.BaseURL}}
        {{if .Config.ConfigPath}}· {{.Config.ConfigPath}}{{end}}
    </footer>
</div>
</body>
</html>
{{end}}
`))
