package messaging

import "peerlink/domain"

// DraftTo builds a plain text draft from the local user to one peer.
func DraftTo(receiverID, content string) domain.Draft {
	return domain.Draft{
		SenderID:   domain.LocalParticipant,
		ReceiverID: receiverID,
		Content:    content,
	}
}

// DraftIn builds a plain text draft from the local user into a room.
func DraftIn(roomID domain.RoomID, content string) domain.Draft {
	return domain.Draft{
		SenderID: domain.LocalParticipant,
		RoomID:   string(roomID),
		Content:  content,
	}
}
