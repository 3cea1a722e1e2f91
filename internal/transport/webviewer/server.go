// Package webviewer serves a minimal browser viewer page wired to a
// stream connection descriptor.
package webviewer

import (
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"strings"

	"newtonviz.dev/internal/protocol"
)

var pageTmpl = template.Must(template.New("viewer").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.AppID}}</title></head>
<body>
<pre id="status">connecting to {{.ConnectTo}} ...</pre>
<script>
const status = document.getElementById("status");
const ws = new WebSocket({{.WSURL}});
let records = 0;
ws.onopen = () => {
  ws.send(JSON.stringify({type: "SUBSCRIBE", protocol_version: {{.ProtocolVersion}}}));
};
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type === "WELCOME") {
    status.textContent = "session " + msg.session_id + " app " + msg.app_id;
  } else {
    records++;
    status.textContent = "records: " + records + " (last: " + msg.type + ")";
  }
};
ws.onclose = () => { status.textContent += "\ndisconnected"; };
// Keepalive: the server drops connections idle on the read side.
setInterval(() => {
  if (ws.readyState === WebSocket.OPEN) {
    ws.send(JSON.stringify({type: "SUBSCRIBE", protocol_version: {{.ProtocolVersion}}}));
  }
}, 30000);
</script>
</body>
</html>
`))

type Server struct {
	log       *log.Logger
	appID     string
	connectTo string

	srv *http.Server
	ln  net.Listener
}

func New(appID, connectTo string, logger *log.Logger) *Server {
	return &Server{log: logger, appID: appID, connectTo: connectTo}
}

// Start binds addr and serves the viewer page, returning its http URL.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("webviewer: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.pageHandler)

	s.ln = ln
	s.srv = &http.Server{Handler: mux}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Printf("webviewer: serve: %v", err)
		}
	}()

	url := fmt.Sprintf("http://%s/", ln.Addr().String())
	s.log.Printf("webviewer: serving at %s (connected to %s)", url, s.connectTo)
	return url, nil
}

func (s *Server) pageHandler(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTmpl.Execute(rw, map[string]string{
		"AppID":           s.appID,
		"ConnectTo":       s.connectTo,
		"WSURL":           WSURL(s.connectTo),
		"ProtocolVersion": protocol.Version,
	})
}

func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

// WSURL translates a rerun+ws:// connection descriptor into the plain
// websocket URL a browser can open.
func WSURL(descriptor string) string {
	return strings.Replace(descriptor, "rerun+ws://", "ws://", 1)
}
