package model

// The For methods compute session-dependent flags at read time.
// Stored rows never carry them.

func (p Post) For(s Session) Post {
	p.OwnedByMe = s.LoggedIn() && p.AuthorID == s.ID
	return p
}

func (e Event) For(s Session) Event {
	e.OwnedByMe = s.LoggedIn() && e.AuthorID == s.ID
	return e
}

func (j Job) For(s Session) Job {
	j.OwnedByMe = s.LoggedIn() && j.UserID == s.ID
	return j
}

func (u User) For(Session) User {
	return u
}

// Stored strips what must not reach the local store: the session flag
// and the embedded user previews, which live in the user table.

func (p Post) Stored() Post {
	p.OwnedByMe = false
	p.Users = nil
	return p
}

func (e Event) Stored() Event {
	e.OwnedByMe = false
	e.Users = nil
	return e
}

func (j Job) Stored() Job {
	j.OwnedByMe = false
	return j
}

func (u User) Stored() User {
	return u
}

// Previews turns an embedded users map into user rows
func Previews(users map[int64]UserPreview) []User {
	out := make([]User, 0, len(users))
	for id, u := range users {
		out = append(out, User{ID: id, Name: u.Name, Avatar: u.Avatar})
	}
	return out
}
