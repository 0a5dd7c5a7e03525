package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserType string

const (
	Guest UserType = "guest"
	Host  UserType = "host"
)

type User struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"password" json:"-"`
	FirstName    string               `bson:"firstName" json:"firstName"`
	MiddleName   string               `bson:"middleName,omitempty" json:"middleName,omitempty"`
	LastName     string               `bson:"lastName,omitempty" json:"lastName,omitempty"`
	City         string               `bson:"city,omitempty" json:"city,omitempty"`
	UserType     UserType             `bson:"userType" json:"userType"`
	ProfilePic   *FileRef             `bson:"profilePic,omitempty" json:"-"`
	Bookings     []primitive.ObjectID `bson:"bookings" json:"bookings"`
	Favourites   []primitive.ObjectID `bson:"favourites" json:"favourites"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
}

type Home struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	HouseName   string             `bson:"houseName" json:"houseName"`
	Price       float64            `bson:"price" json:"price"`
	Location    string             `bson:"location" json:"location"`
	Rating      float64            `bson:"rating" json:"rating"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Photos      []FileRef          `bson:"photos" json:"-"`
	Rules       *FileRef           `bson:"rules,omitempty" json:"-"`
	HostID      primitive.ObjectID `bson:"hostId,omitempty" json:"hostId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Files returns every stored file the listing points at.
func (home *Home) Files() []FileRef {
	files := make([]FileRef, 0, len(home.Photos)+1)
	files = append(files, home.Photos...)
	if home.Rules != nil {
		files = append(files, *home.Rules)
	}
	return files
}

type FileKind string

const (
	StoredFile FileKind = "stored"
	InlineFile FileKind = "inline"
)

// FileRef points at an uploaded file. Stored refs carry an opaque key into the
// configured object store, inline refs carry the bytes themselves.
type FileRef struct {
	Kind        FileKind `bson:"kind" json:"kind"`
	Reference   string   `bson:"reference,omitempty" json:"reference,omitempty"`
	Data        []byte   `bson:"data,omitempty" json:"-"`
	ContentType string   `bson:"contentType" json:"contentType"`
}

// Upload is a file received from a client, not yet written anywhere.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// UserPatch holds the optional fields of a profile update. Nil means untouched.
type UserPatch struct {
	FirstName  *string `mapstructure:"firstName" json:"firstName" validate:"omitempty,max=50"`
	MiddleName *string `mapstructure:"middleName" json:"middleName" validate:"omitempty,max=50"`
	LastName   *string `mapstructure:"lastName" json:"lastName" validate:"omitempty,max=50"`
	Email      *string `mapstructure:"email" json:"email" validate:"omitempty,email"`
	City       *string `mapstructure:"city" json:"city" validate:"omitempty,max=80"`
	UserType   *string `mapstructure:"userType" json:"userType" validate:"omitempty,oneof=guest host"`
	Password   *string `mapstructure:"password" json:"password" validate:"omitempty,min=8,maxbytes=72"`
}

// UserUpdate is what the store applies after the service resolved a patch.
type UserUpdate struct {
	FirstName    *string
	MiddleName   *string
	LastName     *string
	Email        *string
	City         *string
	UserType     *UserType
	PasswordHash *string
	ProfilePic   *FileRef
}

type HomePatch struct {
	HouseName   *string  `mapstructure:"houseName" json:"houseName" validate:"omitempty,min=1,max=120"`
	Price       *float64 `mapstructure:"price" json:"price" validate:"omitempty,gt=0"`
	Location    *string  `mapstructure:"location" json:"location" validate:"omitempty,max=120"`
	Rating      *float64 `mapstructure:"rating" json:"rating" validate:"omitempty,gte=0,lte=5"`
	Description *string  `mapstructure:"description" json:"description" validate:"omitempty,max=2000"`
}

type HomeUpdate struct {
	HouseName   *string
	Price       *float64
	Location    *string
	Rating      *float64
	Description *string
	Photos      []FileRef
	Rules       *FileRef
}

// Empty reports whether the update would change nothing.
func (update *HomeUpdate) Empty() bool {
	return update.HouseName == nil && update.Price == nil && update.Location == nil &&
		update.Rating == nil && update.Description == nil && update.Photos == nil && update.Rules == nil
}

type HomeFilter struct {
	Location string
	HostID   *primitive.ObjectID
	Page     int
	Limit    int
}

type Page struct {
	Homes []*Home
	Total int64
	Page  int
	Limit int
}

type SignupInput struct {
	Email      string `mapstructure:"email" json:"email" validate:"required,email"`
	Password   string `mapstructure:"password" json:"password" validate:"required,min=8,maxbytes=72"`
	FirstName  string `mapstructure:"firstName" json:"firstName" validate:"required,max=50"`
	MiddleName string `mapstructure:"middleName" json:"middleName" validate:"max=50"`
	LastName   string `mapstructure:"lastName" json:"lastName" validate:"max=50"`
	City       string `mapstructure:"city" json:"city" validate:"max=80"`
	UserType   string `mapstructure:"userType" json:"userType" validate:"omitempty,oneof=guest host"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type HomeInput struct {
	HouseName   string  `mapstructure:"houseName" json:"houseName" validate:"required,max=120"`
	Price       float64 `mapstructure:"price" json:"price" validate:"gt=0"`
	Location    string  `mapstructure:"location" json:"location" validate:"required,max=120"`
	Rating      float64 `mapstructure:"rating" json:"rating" validate:"gte=0,lte=5"`
	Description string  `mapstructure:"description" json:"description" validate:"max=2000"`
}
