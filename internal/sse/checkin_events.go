package sse

import (
	"context"
	"sync"

	"ms-badging/internal/models"
)

// CheckInEventEmitter fans accepted scans out to connected dashboards, either
// for the whole venue or for one scan location.
type CheckInEventEmitter struct {
	allClients     []chan models.CheckInNotice
	allClientMutex sync.RWMutex

	// key: location, value: client channels
	locationClients     map[string][]chan models.CheckInNotice
	locationClientMutex sync.RWMutex
}

func NewCheckInEventEmitter() *CheckInEventEmitter {
	return &CheckInEventEmitter{
		locationClients: make(map[string][]chan models.CheckInNotice),
	}
}

// Subscribe receives every accepted scan until ctx is done.
func (e *CheckInEventEmitter) Subscribe(ctx context.Context) chan models.CheckInNotice {
	clientChan := make(chan models.CheckInNotice, 10)

	e.allClientMutex.Lock()
	e.allClients = append(e.allClients, clientChan)
	e.allClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(clientChan)
	}()

	return clientChan
}

// SubscribeToLocation receives scans made at one location until ctx is done.
func (e *CheckInEventEmitter) SubscribeToLocation(ctx context.Context, location string) chan models.CheckInNotice {
	clientChan := make(chan models.CheckInNotice, 10)

	e.locationClientMutex.Lock()
	e.locationClients[location] = append(e.locationClients[location], clientChan)
	e.locationClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeLocationClient(location, clientChan)
	}()

	return clientChan
}

// NotifyCheckIn broadcasts without blocking; a client whose buffer is full
// misses the notice.
func (e *CheckInEventEmitter) NotifyCheckIn(notice models.CheckInNotice) {
	e.allClientMutex.RLock()
	for _, clientChan := range e.allClients {
		select {
		case clientChan <- notice:
		default:
		}
	}
	e.allClientMutex.RUnlock()

	e.locationClientMutex.RLock()
	for _, clientChan := range e.locationClients[notice.Location] {
		select {
		case clientChan <- notice:
		default:
		}
	}
	e.locationClientMutex.RUnlock()
}

func (e *CheckInEventEmitter) removeClient(clientChan chan models.CheckInNotice) {
	e.allClientMutex.Lock()
	defer e.allClientMutex.Unlock()

	for i, ch := range e.allClients {
		if ch == clientChan {
			e.allClients = append(e.allClients[:i], e.allClients[i+1:]...)
			close(clientChan)
			break
		}
	}
}

func (e *CheckInEventEmitter) removeLocationClient(location string, clientChan chan models.CheckInNotice) {
	e.locationClientMutex.Lock()
	defer e.locationClientMutex.Unlock()

	clients := e.locationClients[location]
	for i, ch := range clients {
		if ch == clientChan {
			e.locationClients[location] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.locationClients[location]) == 0 {
		delete(e.locationClients, location)
	}
}

func (e *CheckInEventEmitter) ClientCount() int {
	e.allClientMutex.RLock()
	defer e.allClientMutex.RUnlock()
	return len(e.allClients)
}

func (e *CheckInEventEmitter) LocationClientCount(location string) int {
	e.locationClientMutex.RLock()
	defer e.locationClientMutex.RUnlock()
	return len(e.locationClients[location])
}
