package data

import "context"

// SampleBooks is the demo catalog shown when the library is empty.
func SampleBooks() []CreateBookInput {
	return []CreateBookInput{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Genre: "Classic", Rating: 5.0, Category: CategoryFeatured, Copies: 3},
		{Title: "Harry Potter", Author: "J.K. Rowling", Genre: "Fantasy", Rating: 5.0, Category: CategoryPopular, Copies: 5},
		{Title: "Pride and Prejudice", Author: "Jane Austen", Genre: "Romance", Rating: 4.5, Category: CategoryFeatured, Copies: 2},
		{Title: "1984", Author: "George Orwell", Genre: "Fiction", Rating: 4.5, Category: CategoryAll, Copies: 4},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: "Fantasy", Rating: 4.0, Category: CategoryPopular, Copies: 3},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", Genre: "Classic", Rating: 4.0, Category: CategoryAll, Copies: 2},
		{Title: "The Da Vinci Code", Author: "Dan Brown", Genre: "Mystery", Rating: 3.5, Category: CategoryPopular, Copies: 4},
		{Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", Rating: 3.5, Category: CategoryAll, Copies: 3},
		{Title: "Steve Jobs", Author: "Walter Isaacson", Genre: "Biography", Rating: 3.0, Category: CategoryAll, Copies: 2},
		{Title: "Sapiens", Author: "Yuval Noah Harari", Genre: "History", Rating: 3.0, Category: CategoryFeatured, Copies: 5},
		{Title: "The Catcher in the Rye", Author: "J.D. Salinger", Genre: "Classic", Rating: 2.5, Category: CategoryAll, Copies: 3},
		{Title: "The Alchemist", Author: "Paulo Coelho", Genre: "Fiction", Rating: 2.5, Category: CategoryAll, Copies: 4},
	}
}

// Seed inserts the sample catalog into an empty book store. It does nothing
// when books already exist.
func Seed(ctx context.Context, books BookStore) (int, error) {
	existing, err := books.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	inputs := SampleBooks()
	for _, input := range inputs {
		if err := books.Insert(ctx, NewBook(input)); err != nil {
			return 0, err
		}
	}
	return len(inputs), nil
}
