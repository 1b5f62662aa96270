package handlers

import (
	"bytes"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var emptyObject = []byte("{}")

// rawBody returns the request body, treating an empty one as {}.
func rawBody(c *gin.Context) ([]byte, error) {
	data, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return emptyObject, nil
	}
	return data, nil
}

// bindBody decodes the body into dest through gin's JSON binding.
func bindBody(c *gin.Context, dest interface{}) error {
	data, err := rawBody(c)
	if err != nil {
		return err
	}
	return binding.JSON.BindBody(data, dest)
}
