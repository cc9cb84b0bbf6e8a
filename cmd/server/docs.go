package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Charity Activations API
// @version         0.1.0
// @description     Event and charity management, attendee donations, and live dashboard streaming.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
