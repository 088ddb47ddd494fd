package book

type BookReq struct {
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author" validate:"required"`
	ISBN            string `json:"isbn" validate:"required"`
	Genre           string `json:"genre"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publicationYear" validate:"gte=0"`
	Description     string `json:"description"`
	TotalCopies     int    `json:"totalCopies" validate:"required,gte=1"`
}
