package model

import "time"

type AttachmentType string

const (
	ATTACHMENT_IMAGE AttachmentType = "IMAGE"
	ATTACHMENT_VIDEO AttachmentType = "VIDEO"
	ATTACHMENT_AUDIO AttachmentType = "AUDIO"
)

type EventType string

const (
	EVENT_ONLINE  EventType = "ONLINE"
	EVENT_OFFLINE EventType = "OFFLINE"
)

type Attachment struct {
	URL  string         `json:"url" bson:"url"`
	Type AttachmentType `json:"type" bson:"type"`
}

// Coordinates are kept as the decimal strings the server sends
type Coordinates struct {
	Lat  string `json:"lat" bson:"lat"`
	Long string `json:"long" bson:"long"`
}

// UserPreview is the short user description embedded in post and event responses
type UserPreview struct {
	Name   string `json:"name" bson:"name"`
	Avatar string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

type Post struct {
	ID           int64                 `json:"id" bson:"id"`
	AuthorID     int64                 `json:"authorId" bson:"author_id"`
	Author       string                `json:"author" bson:"author"`
	AuthorAvatar string                `json:"authorAvatar,omitempty" bson:"author_avatar,omitempty"`
	AuthorJob    string                `json:"authorJob,omitempty" bson:"author_job,omitempty"`
	Content      string                `json:"content" bson:"content"`
	Published    time.Time             `json:"published" bson:"published"`
	Coords       *Coordinates          `json:"coords,omitempty" bson:"coords,omitempty"`
	Link         string                `json:"link,omitempty" bson:"link,omitempty"`
	LikeOwnerIDs []int64               `json:"likeOwnerIds" bson:"like_owner_ids"`
	MentionIDs   []int64               `json:"mentionIds" bson:"mention_ids"`
	MentionedMe  bool                  `json:"mentionedMe" bson:"mentioned_me"`
	LikedByMe    bool                  `json:"likedByMe" bson:"liked_by_me"`
	Attachment   *Attachment           `json:"attachment,omitempty" bson:"attachment,omitempty"`
	OwnedByMe    bool                  `json:"ownedByMe" bson:"-"`
	Users        map[int64]UserPreview `json:"users,omitempty" bson:"-"`
}

type Event struct {
	ID               int64                 `json:"id" bson:"id"`
	AuthorID         int64                 `json:"authorId" bson:"author_id"`
	Author           string                `json:"author" bson:"author"`
	AuthorAvatar     string                `json:"authorAvatar,omitempty" bson:"author_avatar,omitempty"`
	AuthorJob        string                `json:"authorJob,omitempty" bson:"author_job,omitempty"`
	Content          string                `json:"content" bson:"content"`
	Datetime         time.Time             `json:"datetime" bson:"datetime"`
	Published        time.Time             `json:"published" bson:"published"`
	Coords           *Coordinates          `json:"coords,omitempty" bson:"coords,omitempty"`
	Type             EventType             `json:"type" bson:"type"`
	LikeOwnerIDs     []int64               `json:"likeOwnerIds" bson:"like_owner_ids"`
	LikedByMe        bool                  `json:"likedByMe" bson:"liked_by_me"`
	SpeakerIDs       []int64               `json:"speakerIds" bson:"speaker_ids"`
	ParticipantsIDs  []int64               `json:"participantsIds" bson:"participants_ids"`
	ParticipatedByMe bool                  `json:"participatedByMe" bson:"participated_by_me"`
	Attachment       *Attachment           `json:"attachment,omitempty" bson:"attachment,omitempty"`
	Link             string                `json:"link,omitempty" bson:"link,omitempty"`
	OwnedByMe        bool                  `json:"ownedByMe" bson:"-"`
	Users            map[int64]UserPreview `json:"users,omitempty" bson:"-"`
}

type Job struct {
	ID       int64      `json:"id" bson:"id"`
	UserID   int64      `json:"userId,omitempty" bson:"user_id"`
	Name     string     `json:"name" bson:"name"`
	Position string     `json:"position" bson:"position"`
	Start    time.Time  `json:"start" bson:"start"`
	Finish   *time.Time `json:"finish,omitempty" bson:"finish,omitempty"`
	Link     string     `json:"link,omitempty" bson:"link,omitempty"`
	// OwnedByMe is never stored, see Job.For
	OwnedByMe bool `json:"ownedByMe" bson:"-"`
}

type User struct {
	ID     int64  `json:"id" bson:"id"`
	Login  string `json:"login,omitempty" bson:"login,omitempty"`
	Name   string `json:"name" bson:"name"`
	Avatar string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

// Media is the server reference returned for an uploaded file
type Media struct {
	URL string `json:"url"`
}

// MediaUpload is a local file to be uploaded before an entity is saved.
// An empty Type is sniffed from the content.
type MediaUpload struct {
	Filename string
	Data     []byte
	Type     AttachmentType
}

// Key and Owner index entities in the local store

func (p Post) Key() int64    { return p.ID }
func (p Post) Owner() int64  { return p.AuthorID }
func (e Event) Key() int64   { return e.ID }
func (e Event) Owner() int64 { return e.AuthorID }
func (j Job) Key() int64     { return j.ID }
func (j Job) Owner() int64   { return j.UserID }
func (u User) Key() int64    { return u.ID }
func (u User) Owner() int64  { return u.ID }
