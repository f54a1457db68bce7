package tasks

// StarterGoalsDoc is the goals document every new user begins with.
const StarterGoalsDoc = `This is your goals document. You can use "#" to make a category and "-" for an item. Categories can be groupings (e.g. "# Health"), or time frames (e.g. "# Daily"). You can also nest categories by using multiple "#"s (e.g. "## Later this year").

You can use some [markdown](https://www.markdownguide.org/basic-syntax/) to style things.

Here is an example to get you started:

# This year
- Write a book
- Build a rocket ship
- Learn to play the tuba
- Learn to cook gourmet meals

# Daily
## Morning
- Meditate 5 minutes
- Exercise
## Evening
- Read a book
`
