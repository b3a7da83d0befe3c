package config

type WorkerKeyStruct struct {
	PersistSubmissionsQueue string
	EssayReviewQueue        string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSubmissionsQueue: "persist_submissions_queue",
	EssayReviewQueue:        "essay_review_queue",
}
