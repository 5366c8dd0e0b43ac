package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	config "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Config"
)

func TestCorsConfig(t *testing.T) {
	all := corsConfig(config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}})
	assert.True(t, all.AllowAllOrigins)
	assert.Empty(t, all.AllowOrigins)
	assert.NoError(t, all.Validate())

	listed := corsConfig(config.CORSConfig{AllowedOrigins: []string{"http://shop.example"}, MaxAge: 60})
	assert.False(t, listed.AllowAllOrigins)
	assert.Equal(t, []string{"http://shop.example"}, listed.AllowOrigins)
	assert.Equal(t, "1m0s", listed.MaxAge.String())
}
