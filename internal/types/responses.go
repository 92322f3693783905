package types

type UserResponse struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"displayname"`
	Email       string `json:"email"`
}
