package errpage

import (
	"io"
	"net/http"

	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend"
	_ "git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/components/errbox"
)

var errpage = frontend.Templater.Register("errpage", "pages/errpage/errpage.html")

type renderData struct {
	Code   int
	Status string
	Error  error
}

// Render renders the error page.
func Render(w io.Writer, code int, err error) {
	errpage.Execute(w, renderData{
		Code:   code,
		Status: http.StatusText(code),
		Error:  err,
	})
}

// Respond writes the status code and renders the error page.
func Respond(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(code)
	Render(w, code, err)
}
