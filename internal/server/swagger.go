package server

//go:generate swag init -g internal/server/swagger.go -o internal/server/docs

// @title Respond API
// @version 0.1
// @description Demo records API rendered as JSON, ndjson or JSONP callbacks.
// @contact.name Respond Maintainers
// @contact.url https://github.com/raysh454/respond
// @BasePath /
