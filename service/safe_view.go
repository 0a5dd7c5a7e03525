package application

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"rental_service/domain"
)

// UserView is the outward shape of a user. It never carries the password hash.
type UserView struct {
	ID         string   `json:"_id"`
	Email      string   `json:"email"`
	FirstName  string   `json:"firstName"`
	MiddleName string   `json:"middleName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	City       string   `json:"city,omitempty"`
	UserType   string   `json:"userType"`
	ProfilePic string   `json:"profilePic,omitempty"`
	Bookings   []string `json:"bookings"`
	Favourites []string `json:"favourites"`
}

type HomeView struct {
	ID           string    `json:"_id"`
	HouseName    string    `json:"houseName"`
	Price        float64   `json:"price"`
	Location     string    `json:"location"`
	Rating       float64   `json:"rating"`
	Description  string    `json:"description,omitempty"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	Photos       []string  `json:"photos"`
	HouseRulePdf string    `json:"houseRulePdf,omitempty"`
	HostID       string    `json:"hostId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type HomePage struct {
	Homes      []*HomeView `json:"homes"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

// BookingRequest pairs one of a host's listings with a guest that booked it.
type BookingRequest struct {
	Home  *HomeView `json:"home"`
	Guest *UserView `json:"guest"`
}

const rulesPath = "/api/store/rules/%s"

func newUserView(user *domain.User, files domain.FileStore) *UserView {
	view := &UserView{
		ID:         user.ID.Hex(),
		Email:      user.Email,
		FirstName:  user.FirstName,
		MiddleName: user.MiddleName,
		LastName:   user.LastName,
		City:       user.City,
		UserType:   string(user.UserType),
		Bookings:   hexes(user.Bookings),
		Favourites: hexes(user.Favourites),
	}
	if user.ProfilePic != nil {
		view.ProfilePic = files.URL(*user.ProfilePic)
	}
	return view
}

func newHomeView(home *domain.Home, files domain.FileStore) *HomeView {
	view := &HomeView{
		ID:          home.ID.Hex(),
		HouseName:   home.HouseName,
		Price:       home.Price,
		Location:    home.Location,
		Rating:      home.Rating,
		Description: home.Description,
		Photos:      make([]string, 0, len(home.Photos)),
		CreatedAt:   home.CreatedAt,
	}
	for _, photo := range home.Photos {
		view.Photos = append(view.Photos, files.URL(photo))
	}
	if len(view.Photos) > 0 {
		view.PhotoURL = view.Photos[0]
	}
	if home.Rules != nil {
		view.HouseRulePdf = fmt.Sprintf(rulesPath, home.ID.Hex())
	}
	if !home.HostID.IsZero() {
		view.HostID = home.HostID.Hex()
	}
	return view
}

func newHomeViews(homes []*domain.Home, files domain.FileStore) []*HomeView {
	views := make([]*HomeView, 0, len(homes))
	for _, home := range homes {
		views = append(views, newHomeView(home, files))
	}
	return views
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

func roundRating(rating float64) float64 {
	return math.Round(rating*10) / 10
}
