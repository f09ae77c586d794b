package http

import (
	"fmt"
	"net/http"
)

const pageStyle = `body { font-family: system-ui, -apple-system, sans-serif; max-width: 600px; margin: 100px auto; padding: 20px; text-align: center; } h1 { color: #e74c3c; }`

const malformedCodePage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>Invalid Short Code</title>
    <style>` + pageStyle + `</style>
  </head>
  <body>
    <h1>Invalid Short Code</h1>
    <p>The short code format is invalid.</p>
  </body>
</html>`

const notFoundPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>URL Not Found</title>
    <style>` + pageStyle + `</style>
  </head>
  <body>
    <h1>404 Not Found</h1>
    <p>This short URL does not exist.</p>
    <p><code>%s</code></p>
  </body>
</html>`

const serverErrorPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>Server Error</title>
    <style>` + pageStyle + `</style>
  </head>
  <body>
    <h1>500 Server Error</h1>
    <p>Something went wrong. Please try again later.</p>
  </body>
</html>`

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}
