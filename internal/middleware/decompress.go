package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// DecompressBodyReader transparently unwraps gzip-compressed request
// bodies.
func DecompressBodyReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.Header.Get("Content-Encoding"), "gzip") {
			gzipReader, err := gzip.NewReader(req.Body)
			if err != nil {
				resp.WriteHeader(http.StatusBadRequest)
				return
			}

			defer gzipReader.Close()

			req.Body = gzipReader
		}

		next.ServeHTTP(resp, req)
	})
}
