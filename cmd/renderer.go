package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"peerlink/contract"
	"peerlink/domain"
	"peerlink/domain/event"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var _ contract.EventSink = (*renderer)(nil)

// renderer prints each snapshot notification as a terminal table. It is the
// stand-in for the presentation layer: it only reads snapshots, never touches
// component state.
type renderer struct {
	mu  sync.Mutex
	out io.Writer
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) Consume(_ context.Context, e event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch evt := e.(type) {
	case event.DevicesChanged:
		r.renderDevices(evt.Devices)
	case event.UsersChanged:
		r.renderUsers(evt.Users)
	case event.RoomsChanged:
		r.renderRooms(evt.Rooms)
	}
	return nil
}

func (r *renderer) renderDevices(devices []domain.Device) {
	fmt.Fprintln(r.out, color.Cyan.Sprint("Nearby devices"))
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"ID", "Name", "Transport", "Signal", "Connected", "Distance"})
	for _, d := range devices {
		distance := "-"
		if d.DistanceMeters != nil {
			distance = fmt.Sprintf("%.1fm", *d.DistanceMeters)
		}
		connected := color.Yellow.Sprint("no")
		if d.IsConnected {
			connected = color.Green.Sprint("yes")
		}
		table.Append([]string{
			string(d.ID), d.Name, string(d.Transport),
			fmt.Sprintf("%d", d.SignalStrength), connected, distance,
		})
	}
	table.Render()
}

func (r *renderer) renderUsers(users []domain.ConnectedUser) {
	fmt.Fprintln(r.out, color.Cyan.Sprint("Connected users"))
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"ID", "Name", "Online", "Transport", "Last seen"})
	for _, u := range users {
		online := color.Red.Sprint("no")
		if u.IsOnline {
			online = color.Green.Sprint("yes")
		}
		table.Append([]string{
			string(u.ID), u.Name, online, string(u.Transport),
			u.LastSeen.Format("15:04:05"),
		})
	}
	table.Render()
}

func (r *renderer) renderRooms(rooms []domain.ChatRoom) {
	fmt.Fprintln(r.out, color.Cyan.Sprint("Conversations"))
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Room", "Kind", "Unread", "Last message", "Status"})
	for _, room := range rooms {
		last, status := "-", "-"
		if room.LastMessage != nil {
			last = room.LastMessage.Content
			status = room.LastMessage.Status.String()
		}
		unread := fmt.Sprintf("%d", room.UnreadCount)
		if room.UnreadCount > 0 {
			unread = color.Red.Sprint(unread)
		}
		table.Append([]string{room.Name, string(room.Kind), unread, last, status})
	}
	table.Render()
}
