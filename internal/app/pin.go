package app

import (
	"math/rand"
	"strconv"
)

const (
	pinMin = 100000
	pinMax = 999999

	// maxPinAttempts bounds the collision retry loop in CreateRoom.
	maxPinAttempts = 64
)

// RandomPin draws a 6-digit room pin in [100000, 999999]. Uniqueness is the caller's job.
func RandomPin() string {
	return strconv.Itoa(pinMin + rand.Intn(pinMax-pinMin+1))
}
