package server

import (
	"html/template"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} preview</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; background: #f4f4f5; }
header { padding: 12px 20px; background: #fff; border-bottom: 1px solid #e4e4e7; display: flex; justify-content: space-between; align-items: center; }
header h1 { font-size: 15px; margin: 0; font-weight: 600; }
header a { font-size: 13px; color: #2563eb; text-decoration: none; }
main { display: flex; justify-content: center; padding: 24px; }
iframe { width: 100%; max-width: 760px; min-height: 70vh; border: 1px solid #e4e4e7; border-radius: 8px; background: #fff; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<a href="javascript:location.reload()">Reload</a>
</header>
<main>
<iframe src="/tool" sandbox="allow-scripts allow-forms" title="{{.Title}}"></iframe>
</main>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTemplate.Execute(w, struct{ Title string }{Title: s.Title})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	html, err := s.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
