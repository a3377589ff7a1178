package gateway

import "github.com/lingora/gateway/internal/policy"

// Denial is a non-fatal join rejection. The connection stays open and
// the client may retry; the code is stable for UI messaging.
type Denial struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	CodeRoomFull      = "room_full"
	CodeAlreadyJoined = "already_joined"
)

var denialMessages = map[string]string{
	string(policy.ReasonNotFound):       "no such lesson",
	string(policy.ReasonNotParticipant): "you are not a party to this lesson",
	string(policy.ReasonInvalidStatus):  "lesson is not joinable",
	string(policy.ReasonLessonEnded):    "lesson has ended",
	string(policy.ReasonTooEarly):       "too early to join",
	string(policy.ReasonLookupFailed):   "temporary failure, try again",
	CodeRoomFull:                        "room is full",
	CodeAlreadyJoined:                   "already joined",
}

func newDenial(code string) *Denial {
	return &Denial{Code: code, Message: denialMessages[code]}
}

func denialFor(r policy.Reason) *Denial {
	return newDenial(string(r))
}
