package dto

type CreateRoomRequest struct {
	CreatorName string `json:"creator_name"`
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}
